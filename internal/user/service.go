package user

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/apperr"
)

// Roles accepted at account creation.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// CreateInput is the payload for creating a user. Role is fixed afterwards.
type CreateInput struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=admin teacher student"`
}

// UpdateInput is a partial profile patch; nil fields keep their value.
type UpdateInput struct {
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Service manages accounts and credential checks.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create hashes the password and inserts the account. Email and username
// uniqueness is pre-checked so callers see a Conflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	taken, err := s.repo.EmailOrUsernameTaken(ctx, in.Email, in.Username, 0)
	if err != nil {
		return nil, apperr.Internal("failed to look up user", err)
	}
	if taken {
		return nil, apperr.Conflict("A user with that email or username already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	u := User{
		Email:     in.Email,
		Username:  in.Username,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
	}
	id, err := s.repo.Insert(ctx, u)
	if err != nil {
		return nil, apperr.Internal("Failed to create user.", err)
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil || created == nil {
		return nil, apperr.Internal("Failed to load created user.", err)
	}
	return created, nil
}

// Authenticate checks the email/password pair and returns the account.
// A missing user and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("failed to look up user", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, apperr.Unauthorized("Invalid email or password.")
	}
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("User with ID %d not found.", id)
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Update merges the patch over the stored profile and writes it back.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}

	taken, err := s.repo.EmailOrUsernameTaken(ctx, u.Email, u.Username, id)
	if err != nil {
		return nil, apperr.Internal("failed to look up user", err)
	}
	if taken {
		return nil, apperr.Conflict("A user with that email or username already exists.")
	}

	affected, err := s.repo.Update(ctx, *u)
	if err != nil || affected == 0 {
		return nil, apperr.Internal("Failed to update user.", err)
	}
	return u, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("failed to delete user", err)
	}
	if affected == 0 {
		return apperr.NotFound("User with ID %d not found.", id)
	}
	return nil
}
