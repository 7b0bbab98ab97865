package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/database"
	"github.com/vitalform/backend-api/internal/models"
)

func newTestDB(t *testing.T) database.Database {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeDeliverer records delivery attempts and returns a scripted status.
type fakeDeliverer struct {
	status models.DeliveryStatus
	calls  []deliveryCall
}

type deliveryCall struct {
	handle string
	code   string
}

func (f *fakeDeliverer) DeliverCode(ctx context.Context, handle, code string) models.DeliveryStatus {
	f.calls = append(f.calls, deliveryCall{handle: handle, code: code})
	return f.status
}

// storedCode reads the live code for an identifier straight from storage.
func storedCode(t *testing.T, db database.DBPool, contact string) string {
	t.Helper()
	var code string
	row := db.QueryRow(context.Background(), `SELECT code FROM one_time_codes WHERE contact_identifier = $1`, contact)
	require.NoError(t, row.Scan(&code))
	return code
}
