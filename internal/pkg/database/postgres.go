package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database stores preferences, registered widgets and widget state history
// in Postgres. The schema is owned by the migration package.
type Database struct {
	pool *pgxpool.Pool
}

func NewDatabase(pool *pgxpool.Pool) *Database {
	return &Database{
		pool: pool,
	}
}

func Connect(ctx context.Context, dsn string) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewDatabase(pool), nil
}

func (db *Database) Close() error {
	if db.pool == nil {
		return nil
	}
	db.pool.Close()
	return nil
}

// StateRecord is one persisted widget state change.
type StateRecord struct {
	ID          int64     `json:"id"`
	WidgetID    string    `json:"widgetId"`
	TimeStamp   time.Time `json:"timestamp"`
	AnyOn       bool      `json:"anyOn"`
	DeviceCount int       `json:"deviceCount"`
	Warning     string    `json:"warning,omitempty"`
}
