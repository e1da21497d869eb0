package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"council-assistant-backend/internal/db"
)

// DatabaseStore stores session items in the session_items table. It works
// on both PostgreSQL and SQLite.
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// HealthCheck pings the database.
func (ds *DatabaseStore) HealthCheck(ctx context.Context) error {
	return ds.db.HealthCheck(ctx)
}

func (ds *DatabaseStore) GetItem(ctx context.Context, sessionID, key string) (string, bool, error) {
	if err := validSessionID(sessionID); err != nil {
		return "", false, err
	}

	query := `
		SELECT item_value
		FROM session_items
		WHERE session_id = $1 AND item_key = $2
	`

	var value string
	err := ds.db.QueryRowContext(ctx, ds.db.Rebind(query), sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get session item: %w", err)
	}

	// A read is session activity for Prune.
	touch := `UPDATE session_items SET updated_at = $1 WHERE session_id = $2`
	if _, err := ds.db.ExecContext(ctx, ds.db.Rebind(touch), time.Now().UTC(), sessionID); err != nil {
		return "", false, fmt.Errorf("failed to touch session: %w", err)
	}

	return value, true, nil
}

func (ds *DatabaseStore) SetItem(ctx context.Context, sessionID, key, value string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}

	query := `
		INSERT INTO session_items (session_id, item_key, item_value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, item_key)
		DO UPDATE SET
			item_value = EXCLUDED.item_value,
			updated_at = EXCLUDED.updated_at
	`

	_, err := ds.db.ExecContext(ctx, ds.db.Rebind(query), sessionID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session item: %w", err)
	}

	return nil
}

func (ds *DatabaseStore) Clear(ctx context.Context, sessionID string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}

	_, err := ds.db.ExecContext(ctx, ds.db.Rebind(`DELETE FROM session_items WHERE session_id = $1`), sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// Prune deletes items of sessions idle for longer than ttl.
func (ds *DatabaseStore) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := ds.db.ExecContext(ctx, ds.db.Rebind(`DELETE FROM session_items WHERE updated_at < $1`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}
