package history

import (
	"context"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
	log  logger.Logger
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If history is disabled, return a no-op recorder
	if !cfg.Enabled {
		log.Debug().Msg("History disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create history repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("History service initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil || snapshot.Channel == "" {
		return errFactory.New(ErrInvalidSnapshot)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Insert(ctx, snapshot); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *Snapshot) error {
	return nil
}

func (*noopRecorder) Recent(_ context.Context, _ int) ([]Snapshot, error) {
	return nil, nil
}

func (*noopRecorder) Close() error {
	return nil
}
