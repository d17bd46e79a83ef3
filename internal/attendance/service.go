package attendance

import (
	"context"
	"time"

	"rollcall/internal/apperr"
)

// Service records and lists attendance events.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Mark inserts one attendance row for the student in the class.
// Both references are verified first so a bad id surfaces as NotFound
// instead of a raw storage error.
func (s *Service) Mark(ctx context.Context, studentID string, classID int64) error {
	ok, err := s.repo.StudentExists(ctx, studentID)
	if err != nil {
		return apperr.Internal("failed to look up student", err)
	}
	if !ok {
		return apperr.NotFound("Student with ID '%s' not found.", studentID)
	}

	ok, err = s.repo.ClassExists(ctx, classID)
	if err != nil {
		return apperr.Internal("failed to look up class", err)
	}
	if !ok {
		return apperr.NotFound("Class with ID %d not found.", classID)
	}

	affected, err := s.repo.Insert(ctx, studentID, classID, s.now())
	if err != nil {
		return apperr.Internal("failed to mark attendance", err)
	}
	if affected == 0 {
		// Should not happen after the existence checks above.
		return apperr.Internal("Failed to mark attendance.", nil)
	}
	return nil
}

// List returns attendance records matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters Filters) ([]Record, error) {
	records, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperr.Internal("failed to list attendance", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
