package student

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"rollcall/internal/apperr"
	"rollcall/internal/faceclient"
)

// FaceGateway is the slice of the recognition service the student service needs.
type FaceGateway interface {
	AddFace(ctx context.Context, studentID string, image io.Reader, filename string) (*faceclient.MessageResult, error)
	DeleteFace(ctx context.Context, studentID string) (*faceclient.MessageResult, error)
}

// CreateInput is the payload for creating a student.
type CreateInput struct {
	ID        string `json:"id" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	ClassID   int64  `json:"class_id" binding:"required"`
}

// UpdateInput is a partial patch; nil fields keep their previous value.
type UpdateInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	ClassID   *int64  `json:"class_id"`
}

// Service manages student records and their face enrollment.
type Service struct {
	repo    *Repository
	gateway FaceGateway
	log     zerolog.Logger
}

// NewService creates a service backed by a repository and the face gateway.
func NewService(repo *Repository, gateway FaceGateway, log zerolog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, log: log}
}

// Create inserts a new student. The duplicate check runs up front so the
// caller sees a Conflict instead of a translated storage error.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Student, error) {
	exists, err := s.repo.Exists(ctx, in.ID)
	if err != nil {
		return nil, apperr.Internal("failed to look up student", err)
	}
	if exists {
		return nil, apperr.Conflict("Student with ID %s already exists.", in.ID)
	}

	st := Student{ID: in.ID, FirstName: in.FirstName, LastName: in.LastName, ClassID: in.ClassID}
	if err := s.repo.Insert(ctx, st); err != nil {
		return nil, apperr.Internal("Failed to create student.", err)
	}
	return &st, nil
}

// Get returns a student by id.
func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load student", err)
	}
	if st == nil {
		return nil, apperr.NotFound("Student with ID %s not found.", id)
	}
	return st, nil
}

// List returns all students with their class names.
func (s *Service) List(ctx context.Context) ([]WithClass, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list students", err)
	}
	if students == nil {
		students = []WithClass{}
	}
	return students, nil
}

// Update merges the patch over the stored row, then writes every mutable
// field back unconditionally.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Student, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		st.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		st.LastName = *in.LastName
	}
	if in.ClassID != nil {
		st.ClassID = *in.ClassID
	}

	affected, err := s.repo.Update(ctx, *st)
	if err != nil || affected == 0 {
		return nil, apperr.Internal("Failed to update student.", err)
	}
	return st, nil
}

// Delete removes the student and asks the gateway to drop the associated
// face. The local delete is authoritative; a gateway failure is only logged.
func (s *Service) Delete(ctx context.Context, id string) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("failed to delete student", err)
	}
	if affected == 0 {
		return apperr.NotFound("Student with ID %s not found.", id)
	}

	if _, err := s.gateway.DeleteFace(ctx, id); err != nil {
		s.log.Error().Err(err).Str("student_id", id).Msg("face cleanup failed after student deletion")
	}
	return nil
}

// AddFace forwards an enrollment image for an existing student to the gateway.
func (s *Service) AddFace(ctx context.Context, id string, image io.Reader, filename string) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	res, err := s.gateway.AddFace(ctx, id, image, filename)
	if err != nil {
		return "", apperr.Internal("Face addition service failed: "+upstreamDetail(err), err)
	}
	return res.Message, nil
}

// upstreamDetail pulls the service-provided detail out of a gateway error.
func upstreamDetail(err error) string {
	var ue *faceclient.UpstreamError
	if errors.As(err, &ue) {
		return ue.Detail
	}
	return err.Error()
}
