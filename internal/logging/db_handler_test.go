package logging

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/database"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBHandler_MapsEngineAttributes(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, database.MigrateLogs(db))

	sink := NewDBHandler(db)
	logger := slog.New(sink).With("department", "Canteen")

	complaintID := uuid.New()
	userID := uuid.New()
	logger.Info("ignored below error")
	logger.Error("best-effort side effect failed",
		"complaint_id", complaintID,
		"display_id", "NFSU26100001",
		"user_id", userID,
		"action", "notification",
		"error", "connection refused",
		"attempt", 2,
	)
	sink.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, complaintID.String(), entry.ComplaintID)
	assert.Equal(t, "NFSU26100001", entry.DisplayID)
	assert.Equal(t, "Canteen", entry.Department)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID.String(), *entry.UserID)
	assert.Equal(t, "notification", entry.Action)
	assert.Equal(t, "connection refused", entry.Error)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, 2.0, extra["attempt"])
}

func TestCleanup_DeletesOlderThanCutoff(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, database.MigrateLogs(db))

	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	for _, age := range []int{40, 31, 5} {
		require.NoError(t, db.Create(&models.SystemLog{
			ID:        uuid.New(),
			Timestamp: now.AddDate(0, 0, -age),
			Level:     "ERROR",
			Message:   "old",
		}).Error)
	}

	deleted, err := Cleanup(db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	db.Model(&models.SystemLog{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
}
