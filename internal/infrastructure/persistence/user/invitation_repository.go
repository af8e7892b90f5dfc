package user

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SQLInvitationRepository is the SQL-based implementation of the InvitationRepository.
type SQLInvitationRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLInvitationRepository creates a new instance of the repository.
func NewSQLInvitationRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLInvitationRepository {
	return &SQLInvitationRepository{
		db:     db,
		logger: logger,
	}
}

// FindByCode retrieves an invitation code.
func (r *SQLInvitationRepository) FindByCode(code string) (*user.InvitationCode, error) {
	const query = `SELECT code, type, remaining_usage, valid_until FROM invitations WHERE code = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading invitation code", "code", code)

	var inv user.InvitationCode
	var codeType, validUntilStr string

	err := r.db.QueryRow(query, code).Scan(&inv.Code, &codeType, &inv.RemainingUsage, &validUntilStr)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("Invitation code not found", "code", code)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load invitation code", "error", err.Error(), "code", code)
		return nil, err
	}

	inv.Type = user.InvitationCodeType(codeType)
	inv.ValidUntil, err = parseTimestamp(validUntilStr)
	if err != nil {
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return &inv, nil
}

// Redeem decrements the remaining usage of a code. The guarded UPDATE keeps
// concurrent redemptions from pushing the budget below zero.
func (r *SQLInvitationRepository) Redeem(code string) error {
	const query = `UPDATE invitations SET remaining_usage = remaining_usage - 1 WHERE code = ? AND remaining_usage > 0`

	start := time.Now()
	result, err := r.db.Exec(query, code)
	if err != nil {
		r.logger.Database().Error("Invitation redeem failed", "error", err.Error(), "code", code)
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("invitation code %s has no remaining usage", code)
	}

	r.logger.Database().Info("Invitation redeemed", "code", code, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// Store saves a new invitation code.
func (r *SQLInvitationRepository) Store(inv *user.InvitationCode) error {
	const query = `INSERT INTO invitations (code, type, remaining_usage, valid_until) VALUES (?, ?, ?, ?)`

	start := time.Now()
	_, err := r.db.Exec(query, inv.Code, string(inv.Type), inv.RemainingUsage, inv.ValidUntil.UTC().Format(time.RFC3339))
	if err != nil {
		r.logger.Database().Error("Invitation insert failed", "error", err.Error(), "code", inv.Code)
		return err
	}

	r.logger.Database().Info("Invitation insert completed", "code", inv.Code, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}
