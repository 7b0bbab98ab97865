package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/models"
)

// These cases run against pgxmock: driver failures on the core write paths
// must surface as errors, while best-effort sweeps swallow theirs.

func TestSessionCreate_StorageError(t *testing.T) {
	db, mock, err := database.NewMockDBPoolFromNewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewSessionService(db)

	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO sessions").WillReturnError(errors.New("connection reset"))

	_, err = svc.Create(context.Background(), "alice", models.ContactTypeTelegram)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPIssue_StorageError(t *testing.T) {
	db, mock, err := database.NewMockDBPoolFromNewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewOTPService(db, NewSessionService(db), nil)

	mock.ExpectExec("DELETE FROM one_time_codes").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO one_time_codes").WillReturnError(errors.New("connection reset"))

	_, err = svc.Issue(context.Background(), "@alice", models.ContactTypeTelegram)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store one-time code")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPIssue_SweepFailureDoesNotAbort(t *testing.T) {
	db, mock, err := database.NewMockDBPoolFromNewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewOTPService(db, NewSessionService(db), nil)

	mock.ExpectExec("DELETE FROM one_time_codes").WillReturnError(errors.New("lock timeout"))
	mock.ExpectExec("INSERT INTO one_time_codes").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	result, err := svc.Issue(context.Background(), "@alice", models.ContactTypeTelegram)
	require.NoError(t, err, "a failed sweep is logged, not propagated")
	assert.NotNil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPVerify_ConsumeError(t *testing.T) {
	db, mock, err := database.NewMockDBPoolFromNewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewOTPService(db, NewSessionService(db), nil)

	now := time.Now()
	rows := pgxmock.NewRows([]string{"contact_identifier", "contact_type", "code", "expires_at", "created_at"}).
		AddRow("alice", models.ContactTypeTelegram, "123456", now.Add(5*time.Minute), now)

	mock.ExpectExec("DELETE FROM one_time_codes WHERE expires_at").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT (.+) FROM one_time_codes").WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM one_time_codes WHERE contact_identifier").WillReturnError(errors.New("connection reset"))

	_, err = svc.Verify(context.Background(), "@alice", models.ContactTypeTelegram, "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to consume one-time code")
	assert.NoError(t, mock.ExpectationsWereMet())
}
