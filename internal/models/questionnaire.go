package models

import "time"

// Questionnaire is one stored submission. Payload holds the answers encrypted
// with AES-256-GCM before the row is written; the plaintext never reaches the
// store.
type Questionnaire struct {
	ID                string    `json:"id" db:"id"`
	ContactIdentifier string    `json:"contact_identifier" db:"contact_identifier"`
	ContactType       string    `json:"contact_type" db:"contact_type"`
	Payload           string    `json:"-" db:"payload"`
	Language          string    `json:"language" db:"language"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionnaireSaveRequest is the save endpoint body. Contact fields are only
// consulted when the caller holds no session (anonymous submission).
type QuestionnaireSaveRequest struct {
	Telegram string         `json:"telegram"`
	Phone    string         `json:"phone"`
	Language string         `json:"language"`
	Answers  map[string]any `json:"answers" binding:"required"`
}
