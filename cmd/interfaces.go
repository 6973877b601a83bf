package cmd

import (
	"context"
	"time"
)

// Controller is the part of the dashboard service that cmd.run drives.
type Controller interface {
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
	Close()
}

// HistoryStore prunes old widget state history.
type HistoryStore interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}
