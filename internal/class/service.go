package class

import (
	"context"
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"

	"rollcall/internal/apperr"
)

// CreateInput is the payload for creating a class.
type CreateInput struct {
	Name      string `json:"name" binding:"required"`
	TeacherID *int64 `json:"teacher_id"`
}

// Service manages classes and enrollments.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create inserts a new class and returns it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Class, error) {
	cls, err := s.repo.Insert(ctx, in.Name, in.TeacherID)
	if err != nil {
		return nil, apperr.Internal("Failed to create class due to a database error.", err)
	}
	return cls, nil
}

// List returns all classes with teacher names and rosters.
func (s *Service) List(ctx context.Context) ([]WithRoster, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list classes", err)
	}
	if classes == nil {
		classes = []WithRoster{}
	}
	return classes, nil
}

// Enroll adds the student to the class. A repeat enrollment trips the
// composite primary key and comes back as a Conflict.
func (s *Service) Enroll(ctx context.Context, studentID string, classID int64) error {
	ok, err := s.repo.StudentExists(ctx, studentID)
	if err != nil {
		return apperr.Internal("failed to look up student", err)
	}
	if !ok {
		return apperr.NotFound("Student with ID %s not found.", studentID)
	}

	ok, err = s.repo.Exists(ctx, classID)
	if err != nil {
		return apperr.Internal("failed to look up class", err)
	}
	if !ok {
		return apperr.NotFound("Class with ID %d not found.", classID)
	}

	if err := s.repo.Enroll(ctx, studentID, classID); err != nil {
		if isConstraintViolation(err) {
			return apperr.Conflict("Student %s is already enrolled in class %d.", studentID, classID)
		}
		return apperr.Internal("failed to enroll student", err)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
