// Package storage provides the SQL-based implementation of the per-user
// durable key-value store.
package storage

import (
	"database/sql"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/storage"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SQLEntryRepository persists storage entries in the client_storage table.
type SQLEntryRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEntryRepository creates a new instance of the repository.
func NewSQLEntryRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEntryRepository {
	return &SQLEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Find retrieves a stored entry, or nil when the slot has never been written.
func (r *SQLEntryRepository) Find(userID string, key storage.Key) (*storage.Entry, error) {
	const query = `
		SELECT user_id, key, value, changed
		FROM client_storage
		WHERE user_id = ? AND key = ?`

	start := time.Now()

	var entry storage.Entry
	var keyStr, changedStr string
	err := r.db.QueryRow(query, userID, string(key)).Scan(&entry.UserID, &keyStr, &entry.Value, &changedStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Database().Error("Failed to load storage entry", "error", err.Error(), "key", key)
		return nil, err
	}

	entry.Key = storage.Key(keyStr)
	entry.Changed, err = time.Parse(time.RFC3339, changedStr)
	if err != nil {
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return &entry, nil
}

// Put writes an entry, replacing any previous value under the same slot.
func (r *SQLEntryRepository) Put(entry *storage.Entry) error {
	const query = `
		INSERT INTO client_storage (user_id, key, value, changed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, changed = excluded.changed`

	start := time.Now()
	_, err := r.db.Exec(query, entry.UserID, string(entry.Key), entry.Value,
		entry.Changed.UTC().Format(time.RFC3339))
	if err != nil {
		r.logger.Database().Error("Storage entry write failed", "error", err.Error(), "key", entry.Key)
		return err
	}

	r.logger.Database().Debug("Storage entry written", "key", entry.Key)
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// Delete removes an entry. Deleting a slot that was never written is not an
// error.
func (r *SQLEntryRepository) Delete(userID string, key storage.Key) error {
	const query = `DELETE FROM client_storage WHERE user_id = ? AND key = ?`

	_, err := r.db.Exec(query, userID, string(key))
	if err != nil {
		r.logger.Database().Error("Storage entry delete failed", "error", err.Error(), "key", key)
		return err
	}
	return nil
}
