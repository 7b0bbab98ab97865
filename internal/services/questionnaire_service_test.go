package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/crypto"
	"github.com/vitalform/backend-api/internal/models"
)

func newQuestionnaireService(t *testing.T) *QuestionnaireService {
	t.Helper()
	db := newTestDB(t)
	key, err := crypto.GenerateKeyHex()
	require.NoError(t, err)
	encryptor, err := crypto.NewEncryptorFromKeyString(key)
	require.NoError(t, err)
	return NewQuestionnaireService(db, encryptor)
}

func TestQuestionnaireSaveAndGet(t *testing.T) {
	svc := newQuestionnaireService(t)
	ctx := context.Background()

	answers := map[string]any{"allergies": "none", "smoker": false}
	saved, err := svc.Save(ctx, "alice", models.ContactTypeTelegram, "en", answers)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	q, got, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "en", q.Language)
	assert.Equal(t, "none", got["allergies"])
	assert.Equal(t, false, got["smoker"])
}

func TestQuestionnairePayloadIsEncryptedAtRest(t *testing.T) {
	svc := newQuestionnaireService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", models.ContactTypeTelegram, "en", map[string]any{"diagnosis": "confidential-marker"})
	require.NoError(t, err)

	var payload string
	row := svc.db.QueryRow(ctx, `SELECT payload FROM questionnaires WHERE contact_identifier = $1`, "alice")
	require.NoError(t, row.Scan(&payload))
	assert.False(t, strings.Contains(payload, "confidential-marker"), "stored payload must not contain plaintext answers")
	assert.False(t, strings.Contains(payload, "diagnosis"))
}

func TestQuestionnaireSaveReplaces(t *testing.T) {
	svc := newQuestionnaireService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, "alice", models.ContactTypeTelegram, "en", map[string]any{"v": float64(1)})
	require.NoError(t, err)

	second, err := svc.Save(ctx, "alice", models.ContactTypeTelegram, "de", map[string]any{"v": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat save keeps the original row")

	q, got, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "de", q.Language)
	assert.Equal(t, float64(2), got["v"])
}

func TestQuestionnaireGetMissing(t *testing.T) {
	svc := newQuestionnaireService(t)

	q, answers, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Nil(t, answers)
}

func TestQuestionnaireDelete(t *testing.T) {
	svc := newQuestionnaireService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "alice", models.ContactTypeTelegram, "en", map[string]any{"a": "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice"))
	q, _, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, q)

	require.NoError(t, svc.Delete(ctx, "alice"), "deleting twice is a no-op")
}
