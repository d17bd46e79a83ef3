package unregistered

import (
	"context"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/faceclient"
)

// FaceGateway is the slice of the recognition service this package needs.
type FaceGateway interface {
	UnregisterFace(ctx context.Context, faceID string) (*faceclient.MessageResult, error)
}

// Service manages the reconciliation queue of pending faces.
type Service struct {
	repo    *Repository
	gateway FaceGateway
	now     func() time.Time
}

// NewService creates a service backed by a repository and the face gateway.
func NewService(repo *Repository, gateway FaceGateway) *Service {
	return &Service{repo: repo, gateway: gateway, now: time.Now}
}

// Add records a pending face, timestamped at insertion.
func (s *Service) Add(ctx context.Context, faceID string, classID int64) error {
	if err := s.repo.Insert(ctx, faceID, classID, s.now()); err != nil {
		return apperr.Internal("failed to record unregistered face", err)
	}
	return nil
}

// List returns every pending face.
func (s *Service) List(ctx context.Context) ([]Face, error) {
	faces, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list unregistered faces", err)
	}
	if faces == nil {
		faces = []Face{}
	}
	return faces, nil
}

// Delete discards the face on the gateway first, then removes the local
// record. When the gateway call fails nothing local has been touched, so a
// later retry can repeat the whole operation.
func (s *Service) Delete(ctx context.Context, faceID string) error {
	if _, err := s.gateway.UnregisterFace(ctx, faceID); err != nil {
		return apperr.Internal("failed to discard face on the recognition service", err)
	}
	if err := s.repo.Delete(ctx, faceID); err != nil {
		return apperr.Internal("failed to delete unregistered face record", err)
	}
	return nil
}

// Remove drops only the local pending record. Used after a successful
// commit, when the gateway has already consumed the face.
func (s *Service) Remove(ctx context.Context, faceID string) error {
	if err := s.repo.Delete(ctx, faceID); err != nil {
		return apperr.Internal("failed to delete unregistered face record", err)
	}
	return nil
}
