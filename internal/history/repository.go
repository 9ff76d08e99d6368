package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.DBPath, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("History repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Insert(ctx context.Context, s *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, insertSettingSQL,
		ts.UnixNano(),
		s.Chip,
		s.Channel,
		s.Period.Nanoseconds(),
		s.DutyCycle.Nanoseconds(),
		boolToInt(s.Enabled),
		boolToInt(s.Inverted),
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to insert setting")
		return errors.New().Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, recentSettingsSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageQuery, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			ts, period, duty  int64
			chip, channel     string
			enabled, inverted int
		)
		if err := rows.Scan(&ts, &chip, &channel, &period, &duty, &enabled, &inverted); err != nil {
			return nil, errFactory.Wrap(ErrStorageQuery, err)
		}
		out = append(out, Snapshot{
			Timestamp: time.Unix(0, ts),
			Chip:      chip,
			Channel:   channel,
			Period:    time.Duration(period),
			DutyCycle: time.Duration(duty),
			Enabled:   enabled != 0,
			Inverted:  inverted != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageQuery, err)
	}

	return out, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Debug().Msg("History repository closed")

	return nil
}
