// Package session persists HTTP sessions in the database. A request only
// ever holds the opaque session id (via cookie) and a decoded copy of the
// payload; the rows themselves belong to the store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
	"taskmanager/internal/secure"
)

// CookieName is the cookie carrying the session id.
const CookieName = "session_id"

// DefaultMaxAge matches the original one-week session lifetime.
const DefaultMaxAge = 7 * 24 * time.Hour

// idByteLen is the entropy of a minted session id before hex encoding.
const idByteLen = 24

// Payload is the JSON-serializable session state. A zero UserID means the
// session carries no authenticated identity.
type Payload struct {
	UserID int64  `json:"userId,omitempty"`
	Flash  string `json:"flash,omitempty"`
}

// Backend is the persistence surface the store needs; *sqlite.Store
// satisfies it.
type Backend interface {
	Session(ctx context.Context, id string) (models.Session, error)
	UpsertSession(ctx context.Context, id, data string, expiration time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

// Store reads and writes session payloads.
type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Read returns the decoded payload for the id. A missing, expired or
// undecodable session yields a zero payload, indistinguishable from "no
// session"; a backend failure is returned as-is.
func (s *Store) Read(ctx context.Context, id string) (Payload, error) {
	if id == "" {
		return Payload{}, nil
	}

	row, err := s.backend.Session(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return Payload{}, nil
	}
	if err != nil {
		return Payload{}, fmt.Errorf("read session: %w", err)
	}
	if !s.now().Before(row.ExpirationDate) {
		return Payload{}, nil
	}

	var payload Payload
	if err := json.Unmarshal([]byte(row.Data), &payload); err != nil {
		return Payload{}, nil
	}
	return payload, nil
}

// Write upserts the payload under the given id, minting a fresh random id
// when none is supplied, and returns the id in effect.
func (s *Store) Write(ctx context.Context, payload Payload, id string, maxAge time.Duration) (string, error) {
	if id == "" {
		minted, err := secure.RandomHex(idByteLen)
		if err != nil {
			return "", fmt.Errorf("mint session id: %w", err)
		}
		id = minted
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode session payload: %w", err)
	}

	expiration := s.now().Add(maxAge)
	if err := s.backend.UpsertSession(ctx, id, string(data), expiration); err != nil {
		return "", err
	}
	return id, nil
}

// Destroy removes the session row; destroying an unknown id is a no-op.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.backend.DeleteSession(ctx, id)
}
