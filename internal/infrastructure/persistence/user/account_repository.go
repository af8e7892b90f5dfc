// Package user provides the concrete SQL-based implementations of
// the user domain repositories (Account, Preference, Invitation).
package user

import (
	"database/sql"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SQLAccountRepository is the SQL-based implementation of the AccountRepository.
type SQLAccountRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLAccountRepository creates a new instance of the repository.
func NewSQLAccountRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLAccountRepository {
	return &SQLAccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = `id, name, email, password_hash, email_verified, provider, created_at, changed`

// FindByID retrieves an Account by its unique identifier.
func (r *SQLAccountRepository) FindByID(id string) (*user.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading account by ID", "id", id)

	row := r.db.QueryRow(query, id)
	account, err := r.scanAccount(row)
	if err != nil {
		r.logger.Database().Error("Failed to load account by ID", "error", err.Error(), "id", id)
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return account, nil
}

// FindByEmail retrieves an Account by its email address.
func (r *SQLAccountRepository) FindByEmail(email string) (*user.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading account by email", "email", email)

	row := r.db.QueryRow(query, email)
	account, err := r.scanAccount(row)
	if err != nil {
		r.logger.Database().Error("Failed to load account by email", "error", err.Error(), "email", email)
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return account, nil
}

// Store saves a new Account to the database.
func (r *SQLAccountRepository) Store(account *user.Account) error {
	const query = `
		INSERT INTO accounts (id, name, email, password_hash, email_verified, provider, created_at, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing account insert", "id", account.ID, "email", account.Email)

	_, err := r.db.Exec(
		query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.EmailVerified,
		account.Provider,
		account.CreatedAt.UTC().Format(time.RFC3339),
		account.Changed.UTC().Format(time.RFC3339),
	)
	if err != nil {
		r.logger.Database().Error("Account insert failed", "error", err.Error(), "id", account.ID, "email", account.Email)
		return err
	}

	r.logger.Database().Info("Account insert completed", "id", account.ID, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// Update modifies an existing Account in the database.
func (r *SQLAccountRepository) Update(account *user.Account) error {
	const query = `
		UPDATE accounts
		SET name = ?, email = ?, password_hash = ?, email_verified = ?, provider = ?, changed = ?
		WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing account update", "id", account.ID)

	_, err := r.db.Exec(
		query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.EmailVerified,
		account.Provider,
		time.Now().UTC().Format(time.RFC3339),
		account.ID,
	)
	if err != nil {
		r.logger.Database().Error("Account update failed", "error", err.Error(), "id", account.ID)
		return err
	}

	r.logger.Database().Info("Account update completed", "id", account.ID, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// scanAccount is a helper function to scan a sql.Row into an Account struct.
func (r *SQLAccountRepository) scanAccount(row *sql.Row) (*user.Account, error) {
	var account user.Account
	var createdAtStr, changedStr string

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.EmailVerified,
		&account.Provider,
		&createdAtStr,
		&changedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	account.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return nil, err
	}
	account.Changed, err = parseTimestamp(changedStr)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// parseTimestamp accepts RFC3339 with a space-separated fallback for rows
// written by older tooling.
func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
