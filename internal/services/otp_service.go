package services

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/utils"
)

const (
	defaultCodeExpiry = 10 * time.Minute

	// Codes are drawn uniformly from [100000, 999999] so every code is six
	// digits with no leading zero.
	codeMin  = 100000
	codeSpan = 900000
)

// CodeDeliverer pushes a freshly issued code to its recipient. Implementations
// report a tri-state outcome and never fail issuance.
type CodeDeliverer interface {
	DeliverCode(ctx context.Context, handle, code string) models.DeliveryStatus
}

// IssueResult tells the caller whether the code reached the recipient and what
// to show the user. The code itself is never part of the result.
type IssueResult struct {
	Status  models.DeliveryStatus
	Message string
}

// OTPService owns the one-time-code lifecycle: issue, replace, verify, expire.
type OTPService struct {
	db         database.DBPool
	sessions   *SessionService
	deliverer  CodeDeliverer
	codeExpiry time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewOTPService(db database.DBPool, sessions *SessionService, deliverer CodeDeliverer) *OTPService {
	return &OTPService{
		db:         db,
		sessions:   sessions,
		deliverer:  deliverer,
		codeExpiry: defaultCodeExpiry,
		now:        time.Now,
		logger:     logging.Default().WithComponent("otp_service"),
	}
}

func NewOTPServiceWithExpiry(db database.DBPool, sessions *SessionService, deliverer CodeDeliverer, expiry time.Duration) *OTPService {
	s := NewOTPService(db, sessions, deliverer)
	s.codeExpiry = expiry
	return s
}

// Issue generates a code for the given contact, stores it (replacing any
// previous code for the same identifier) and attempts delivery. Delivery
// failures are reported in the result, not as errors.
func (s *OTPService) Issue(ctx context.Context, rawContact, contactType string) (*IssueResult, error) {
	contact, err := s.requireContact(rawContact, contactType)
	if err != nil {
		return nil, err
	}

	s.sweepExpired(ctx)

	code, err := generateNumericCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	now := s.now()
	query := `
		INSERT INTO one_time_codes (contact_identifier, contact_type, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contact_identifier) DO UPDATE SET
			contact_type = excluded.contact_type,
			code = excluded.code,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`

	if _, err := s.db.Exec(ctx, query, contact, contactType, code, now.Add(s.codeExpiry), now); err != nil {
		return nil, fmt.Errorf("failed to store one-time code: %w", err)
	}

	return s.deliver(ctx, contact, contactType, code), nil
}

// Verify consumes the code and mints a session. The stored row is deleted
// whether the code matched and whether it had expired; success and a usable
// session come back only for a live, matching code.
func (s *OTPService) Verify(ctx context.Context, rawContact, contactType, code string) (*models.Session, error) {
	contact, err := s.requireContact(rawContact, contactType)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrCodeNotFound
	}

	s.sweepExpired(ctx)

	query := `
		SELECT contact_identifier, contact_type, code, expires_at, created_at
		FROM one_time_codes
		WHERE contact_identifier = $1 AND code = $2`

	var otp models.OneTimeCode
	row := s.db.QueryRow(ctx, query, contact, code)
	if err := row.Scan(&otp.ContactIdentifier, &otp.ContactType, &otp.Code, &otp.ExpiresAt, &otp.CreatedAt); err != nil {
		return nil, ErrCodeNotFound
	}

	if otp.ExpiresAt.Before(s.now()) {
		s.deleteCode(ctx, contact, code)
		return nil, ErrCodeExpired
	}

	// Single use: the row must still be ours to consume. A zero row count
	// means a concurrent verify got there first.
	result, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE contact_identifier = $1 AND code = $2`, contact, code)
	if err != nil {
		return nil, fmt.Errorf("failed to consume one-time code: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrCodeNotFound
	}

	return s.sessions.Create(ctx, contact, contactType)
}

func (s *OTPService) requireContact(rawContact, contactType string) (string, error) {
	if contactType != models.ContactTypeTelegram && contactType != models.ContactTypePhone {
		return "", ErrUnsupportedContactType
	}
	contact := NormalizeContact(rawContact, contactType)
	if contact == "" {
		return "", ErrMissingContact
	}
	return contact, nil
}

func (s *OTPService) deliver(ctx context.Context, contact, contactType, code string) *IssueResult {
	if contactType == models.ContactTypePhone || s.deliverer == nil {
		// SMS delivery is not wired up yet; the code sits in storage until
		// it expires or someone verifies it out-of-band.
		return &IssueResult{
			Status:  models.DeliveryStatusNotAttempted,
			Message: "Phone delivery is not available yet. Contact support to receive your code.",
		}
	}

	status := s.deliverer.DeliverCode(ctx, contact, code)
	switch status {
	case models.DeliveryStatusDelivered:
		return &IssueResult{Status: status, Message: "Your login code has been sent on Telegram."}
	case models.DeliveryStatusRecipientUnknown:
		return &IssueResult{Status: status, Message: "We could not reach you on Telegram. Open a chat with the bot first, then request a new code."}
	default:
		return &IssueResult{Status: models.DeliveryStatusChannelError, Message: "Telegram delivery failed. Please try again shortly."}
	}
}

// sweepExpired opportunistically drops stale codes. Failures are logged and
// swallowed; expiry is still enforced at verify time.
func (s *OTPService) sweepExpired(ctx context.Context) {
	if _, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE expires_at < $1`, s.now()); err != nil {
		s.logger.Warn("failed to sweep expired codes", zap.Error(err))
	}
}

func (s *OTPService) deleteCode(ctx context.Context, contact, code string) {
	if _, err := s.db.Exec(ctx, `DELETE FROM one_time_codes WHERE contact_identifier = $1 AND code = $2`, contact, code); err != nil {
		s.logger.Warn("failed to delete expired code", zap.String("contact", utils.MaskContact(contact)), zap.Error(err))
	}
}

func generateNumericCode() (string, error) {
	n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", codeMin+n.Int64()), nil
}
