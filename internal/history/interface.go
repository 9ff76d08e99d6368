package history

import (
	"context"
	"time"
)

// Recorder stores and returns applied channel settings
type Recorder interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// Repository defines the interface for history data storage
type Repository interface {
	Insert(ctx context.Context, snapshot *Snapshot) error
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// Snapshot is one applied configuration of a channel
type Snapshot struct {
	Timestamp time.Time
	Chip      string
	Channel   string
	Period    time.Duration
	DutyCycle time.Duration
	Enabled   bool
	Inverted  bool
}
