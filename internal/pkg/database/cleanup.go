package database

import (
	"context"
	"time"
)

// DefaultRetention is how long widget state history is kept.
const DefaultRetention = 8 * 24 * time.Hour

// Cleanup removes widget state history older than the retention window.
func (db *Database) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	tag, err := db.pool.Exec(ctx, "DELETE FROM widget_state WHERE time_stamp < $1", time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
