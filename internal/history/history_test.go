package history_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/history"
	"codeberg.org/mutker/pwmctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	rec, err := history.NewService(history.Config{DBPath: "/nonexistent/history.db"}, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), &history.Snapshot{Channel: "pwm0"}))
	got, err := rec.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, rec.Close())
}

func TestEnabledRequiresPath(t *testing.T) {
	_, err := history.NewService(history.Config{Enabled: true}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, history.ErrInvalidDBPath))
}

func TestRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	rec, err := history.NewService(history.Config{Enabled: true, DBPath: path}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	ctx := context.Background()
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, rec.Record(ctx, &history.Snapshot{
		Timestamp: base,
		Chip:      "pwmchip0",
		Channel:   "pwm0",
		Period:    time.Millisecond,
		DutyCycle: 500 * time.Microsecond,
		Enabled:   true,
	}))
	require.NoError(t, rec.Record(ctx, &history.Snapshot{
		Timestamp: base.Add(time.Second),
		Chip:      "pwmchip0",
		Channel:   "pwm1",
		Period:    40 * time.Microsecond,
		Inverted:  true,
	}))

	got, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "pwm1", got[0].Channel, "newest first")
	assert.True(t, got[0].Inverted)
	assert.False(t, got[0].Enabled)
	assert.Equal(t, 40*time.Microsecond, got[0].Period)

	assert.Equal(t, "pwm0", got[1].Channel)
	assert.Equal(t, 500*time.Microsecond, got[1].DutyCycle)
	assert.True(t, got[1].Timestamp.Equal(base))

	one, err := rec.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	none, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRejectsEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	rec, err := history.NewService(history.Config{Enabled: true, DBPath: path}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	err = rec.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, history.ErrInvalidSnapshot))

	err = rec.Record(context.Background(), &history.Snapshot{})
	assert.True(t, errors.HasCode(err, history.ErrInvalidSnapshot))
}

func TestRecordCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	rec, err := history.NewService(history.Config{Enabled: true, DBPath: path}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rec.Record(ctx, &history.Snapshot{Channel: "pwm0"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchemaMismatchIsBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
        INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));`)
	require.NoError(t, err)

	version, err := history.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 99, version)

	require.NoError(t, history.ValidateAndUpdateSchema(db, path, logger.Nop()))

	version, err = history.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, history.SchemaVersion, version)

	exists, err := history.TableExists(db, "settings")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, db.Close())

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
