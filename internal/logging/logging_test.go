package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchers-org/couchers-backend/internal/database"
	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestDBHandler_PersistsErrorsOnly(t *testing.T) {
	db := testutil.OpenDB(t)
	h := NewDBHandler(db)

	logger := slog.New(h).With("request_id", "req-1")
	logger.Info("not stored")
	logger.Error("query failed",
		"viewer_id", "a4b5",
		"method", "GET",
		"path", "/api/users",
		"error", errors.New("boom"),
		"attempt", 2,
	)
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "query failed", entry.Message)
	assert.Equal(t, "req-1", entry.RequestID)
	require.NotNil(t, entry.ViewerID)
	assert.Equal(t, "a4b5", *entry.ViewerID)
	assert.Equal(t, "GET", entry.Method)
	assert.Equal(t, "/api/users", entry.Path)
	assert.Equal(t, "boom", entry.Error)

	var extra map[string]string
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, "2", extra["attempt"])
}

func TestDBHandler_StopIsIdempotent(t *testing.T) {
	h := NewDBHandler(testutil.OpenDB(t))
	h.Stop()
	h.Stop()
}

func buffered(h *DBHandler) []models.SystemLog {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]models.SystemLog(nil), h.sink.buffer...)
}

func TestDBHandler_FailedFlushDoesNotFeedBack(t *testing.T) {
	// no system_logs table, and GORM errors are logged through slog
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.OpenSQLite(dsn, &gorm.Config{Logger: database.NewLogger(0, false)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	h := NewDBHandler(db)
	t.Cleanup(h.Stop)

	previous := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(previous) })

	slog.Error("request failed")
	require.Len(t, buffered(h), 1)

	h.sink.flush()
	assert.Empty(t, buffered(h))
}

func TestDBHandler_DropsRecordsAfterStop(t *testing.T) {
	db := testutil.OpenDB(t)
	h := NewDBHandler(db)
	h.Stop()

	slog.New(h).Error("too late")
	assert.Empty(t, buffered(h))

	var n int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMultiHandler_FansOut(t *testing.T) {
	var info, errs bytes.Buffer
	m := NewMultiHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(m).With("component", "test")

	assert.False(t, m.Enabled(context.Background(), slog.LevelDebug))

	logger.Info("hello")
	logger.Error("bad")

	assert.Contains(t, info.String(), `"msg":"hello"`)
	assert.Contains(t, info.String(), `"msg":"bad"`)
	assert.NotContains(t, errs.String(), "hello")
	assert.Contains(t, errs.String(), `"component":"test"`)
}

func TestPurgeBefore(t *testing.T) {
	db := testutil.OpenDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.Add(-40 * 24 * time.Hour), Level: "ERROR"}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now, Level: "ERROR"}).Error)

	deleted, err := PurgeBefore(db, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var n int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
