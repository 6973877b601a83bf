package database

import (
	"context"
	"time"

	"github.com/anicoll/homedash/internal/pkg/model"
)

// Write appends the widget state changes to the history table.
func (db *Database) Write(ctx context.Context, states []model.WidgetState) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range states {
		ts := s.UpdatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO widget_state (widget_id, time_stamp, any_on, device_count, warning)
			VALUES ($1, $2, $3, $4, $5)
		`, s.WidgetID, ts, s.AnyOn, len(s.Devices), s.Warning); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *Database) RegisterWidget(widget model.DashboardWidget) error {
	_, err := db.pool.Exec(context.Background(), `
		INSERT INTO widget (id, name, component)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, component = excluded.component;`,
		widget.ID, widget.DisplayName(), widget.Widget.Component)
	return err
}

func (db *Database) Set(ctx context.Context, key, value string) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO preference (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key, value)
	return err
}
