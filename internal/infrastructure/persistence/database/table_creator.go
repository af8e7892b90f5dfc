package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email_verified INTEGER NOT NULL DEFAULT 0,
		provider TEXT NOT NULL DEFAULT 'password',
		created_at TEXT NOT NULL,
		changed TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY,
		language TEXT NOT NULL DEFAULT 'en',
		sessions TEXT NOT NULL DEFAULT '[]',
		accepted_tc TEXT,
		sensitive_data_requirement TEXT NOT NULL DEFAULT 'NOT_REQUIRED',
		answered_questions TEXT NOT NULL DEFAULT '{}',
		experiment_groups TEXT NOT NULL DEFAULT '{}',
		FOREIGN KEY (user_id) REFERENCES accounts(id)
	)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		code TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		remaining_usage INTEGER NOT NULL,
		valid_until TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ranking_states (
		session_id INTEGER PRIMARY KEY,
		experiment_group TEXT NOT NULL,
		phases TEXT NOT NULL DEFAULT '[]',
		score TEXT,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS client_storage (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		changed TEXT NOT NULL,
		PRIMARY KEY (user_id, key)
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_type ON invitations(type)`,
	`CREATE INDEX IF NOT EXISTS idx_client_storage_user ON client_storage(user_id)`,
}

// CreateSchema executes all necessary queries to build the database tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
