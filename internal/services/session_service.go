package services

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/models"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	sessionTokenBytes = 32
)

// SessionService mints and verifies opaque bearer tokens. Tokens carry no
// embedded claims; everything lives in the sessions table.
type SessionService struct {
	db     database.DBPool
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewSessionService(db database.DBPool) *SessionService {
	return &SessionService{
		db:     db,
		ttl:    defaultSessionTTL,
		now:    time.Now,
		logger: logging.Default().WithComponent("session_service"),
	}
}

func NewSessionServiceWithTTL(db database.DBPool, ttl time.Duration) *SessionService {
	s := NewSessionService(db)
	s.ttl = ttl
	return s
}

// Create mints a fresh session for the contact. Existing sessions for the same
// contact stay valid; each login adds one.
func (s *SessionService) Create(ctx context.Context, contact, contactType string) (*models.Session, error) {
	s.sweepExpired(ctx)

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		Token:             token,
		ContactIdentifier: contact,
		ContactType:       contactType,
		ExpiresAt:         now.Add(s.ttl),
		LastUsedAt:        now,
		CreatedAt:         now,
	}

	query := `
		INSERT INTO sessions (token, contact_identifier, contact_type, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.db.Exec(ctx, query,
		session.Token,
		session.ContactIdentifier,
		session.ContactType,
		session.ExpiresAt,
		session.LastUsedAt,
		session.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// Verify resolves a token to the identity it was minted for. Unknown and
// expired tokens both come back as (nil, nil); storage failures are errors.
// Expired rows are deleted on sight, and live ones get last_used_at touched.
func (s *SessionService) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, nil
	}

	s.sweepExpired(ctx)

	query := `
		SELECT token, contact_identifier, contact_type, expires_at, last_used_at, created_at
		FROM sessions
		WHERE token = $1`

	var session models.Session
	row := s.db.QueryRow(ctx, query, token)
	if err := row.Scan(
		&session.Token,
		&session.ContactIdentifier,
		&session.ContactType,
		&session.ExpiresAt,
		&session.LastUsedAt,
		&session.CreatedAt,
	); err != nil {
		return nil, nil
	}

	if session.ExpiresAt.Before(s.now()) {
		if err := s.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, nil
	}

	s.touch(ctx, token)

	return &models.Identity{
		ContactIdentifier: session.ContactIdentifier,
		ContactType:       session.ContactType,
		Authenticated:     true,
	}, nil
}

// Delete removes a session. Deleting a token that does not exist is a no-op.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionService) touch(ctx context.Context, token string) {
	if _, err := s.db.Exec(ctx, `UPDATE sessions SET last_used_at = $1 WHERE token = $2`, s.now(), token); err != nil {
		s.logger.Warn("failed to touch session", zap.Error(err))
	}
}

func (s *SessionService) sweepExpired(ctx context.Context) {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, s.now()); err != nil {
		s.logger.Warn("failed to sweep expired sessions", zap.Error(err))
	}
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := cryptorand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
