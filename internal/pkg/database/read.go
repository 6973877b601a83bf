package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

func (db *Database) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.pool.QueryRow(ctx, `SELECT value FROM preference WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// GetHistory returns the state changes of a widget, newest first. Without a
// range the last two days are returned.
func (db *Database) GetHistory(ctx context.Context, widgetID string, from, to *time.Time) ([]StateRecord, error) {
	if from == nil || to == nil {
		f := time.Now().AddDate(0, 0, -2)
		t := time.Now()
		from, to = &f, &t
	}

	rows, err := db.pool.Query(ctx, `
	SELECT id, widget_id, time_stamp, any_on, device_count, warning
	FROM widget_state
	WHERE widget_id = $1 AND time_stamp BETWEEN $2 AND $3
	ORDER BY time_stamp DESC;
	`, widgetID, *from, *to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStateRecords(rows)
}

func scanStateRecords(rows pgx.Rows) ([]StateRecord, error) {
	records := make([]StateRecord, 0)
	for rows.Next() {
		var r StateRecord
		if err := rows.Scan(&r.ID, &r.WidgetID, &r.TimeStamp, &r.AnyOn, &r.DeviceCount, &r.Warning); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
