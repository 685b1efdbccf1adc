// Package auth resolves the request's actor from its session, validates
// credentials at sign-in, and decides per-route permissions.
package auth

import (
	"context"
	"errors"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
	"taskmanager/internal/secure"
)

// Actor holds the identity resolved from a session. At most one of the two
// slots is set: an active user binds as Current, a soft-deleted one only as
// Restorable (eligible for the restore flow, never "logged in").
type Actor struct {
	Current    *models.User
	Restorable *models.User
}

// SignInResult classifies the outcome of a credential check.
type SignInResult int

const (
	// SignInRejected means no user matched the email/password pair.
	SignInRejected SignInResult = iota
	// SignInOK means an active user authenticated.
	SignInOK
	// SignInRestorable means a deleted account authenticated and must go
	// through the restore flow before regular access.
	SignInRestorable
)

// UserDirectory is the user lookup surface the service needs;
// *sqlite.Store satisfies it.
type UserDirectory interface {
	UserByID(ctx context.Context, id int64, scope models.Scope) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
}

type Service struct {
	users  UserDirectory
	hasher *secure.Hasher
}

func NewService(users UserDirectory, hasher *secure.Hasher) *Service {
	return &Service{users: users, hasher: hasher}
}

// HashPassword derives the stored hash for a plaintext password.
func (s *Service) HashPassword(password string) string {
	return s.hasher.Hash(password)
}

// ResolveActor maps a session's user id onto the actor slots. A zero or
// dangling id leaves both slots empty.
func (s *Service) ResolveActor(ctx context.Context, userID int64) (Actor, error) {
	if userID == 0 {
		return Actor{}, nil
	}

	user, err := s.users.UserByID(ctx, userID, models.ScopeAny)
	if errors.Is(err, apperr.ErrNotFound) {
		return Actor{}, nil
	}
	if err != nil {
		return Actor{}, err
	}

	if user.IsActive() {
		return Actor{Current: &user}, nil
	}
	return Actor{Restorable: &user}, nil
}

// SignIn validates an email/password pair. Deleted accounts authenticate
// too, so their owners can reach the restore flow.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.User, SignInResult, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, SignInRejected, nil
	}
	if err != nil {
		return models.User{}, SignInRejected, err
	}

	if !s.hasher.Match(password, user.PasswordHash) {
		return models.User{}, SignInRejected, nil
	}

	if user.IsActive() {
		return user, SignInOK, nil
	}
	return user, SignInRestorable, nil
}
