package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

// Init creates the tables this service owns if they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			calendar_refresh_token TEXT NOT NULL DEFAULT '',
			calendar_connection_status TEXT NOT NULL DEFAULT 'unconnected',
			calendar_connected_at TIMESTAMPTZ,
			calendar_needs_reauth_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			business_id TEXT NOT NULL,
			customer_id TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL,
			service TEXT NOT NULL DEFAULT '',
			start_at_utc TIMESTAMPTZ NOT NULL,
			end_at_utc TIMESTAMPTZ NOT NULL,
			event_id TEXT NOT NULL,
			event_link TEXT NOT NULL DEFAULT '',
			meet_link TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'confirmed',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_business_start
			ON appointments (business_id, start_at_utc)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			business_id TEXT NOT NULL,
			title TEXT NOT NULL,
			due_at_utc TIMESTAMPTZ NOT NULL,
			event_id TEXT NOT NULL DEFAULT '',
			meet_link TEXT NOT NULL DEFAULT '',
			attendee_email TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range schema {
		if _, err := s.DB.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
