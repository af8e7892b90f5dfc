package user

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SQLPreferenceRepository is the SQL-based implementation of the PreferenceRepository.
// Session lists and answered-question maps are stored as JSON columns; the
// session order is significant (head = active) and is preserved verbatim.
type SQLPreferenceRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLPreferenceRepository creates a new instance of the repository.
func NewSQLPreferenceRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLPreferenceRepository {
	return &SQLPreferenceRepository{
		db:     db,
		logger: logger,
	}
}

// FindByUserID retrieves the Preference record for a user.
func (r *SQLPreferenceRepository) FindByUserID(userID string) (*user.Preference, error) {
	const query = `
		SELECT user_id, language, sessions, accepted_tc, sensitive_data_requirement,
		       answered_questions, experiment_groups
		FROM preferences
		WHERE user_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading preferences", "userId", userID)

	var pref user.Preference
	var language, sessionsJSON, requirement, answeredJSON, groupsJSON string
	var acceptedTC sql.NullString

	err := r.db.QueryRow(query, userID).Scan(
		&pref.UserID,
		&language,
		&sessionsJSON,
		&acceptedTC,
		&requirement,
		&answeredJSON,
		&groupsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("Preferences not found", "userId", userID)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load preferences", "error", err.Error(), "userId", userID)
		return nil, err
	}

	pref.Language = user.Language(language)
	pref.SensitiveDataRequirement = user.SensitiveDataRequirement(requirement)

	if err := json.Unmarshal([]byte(sessionsJSON), &pref.Sessions); err != nil {
		return nil, fmt.Errorf("corrupt sessions column for user %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(answeredJSON), &pref.AnsweredQuestions); err != nil {
		return nil, fmt.Errorf("corrupt answered_questions column for user %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(groupsJSON), &pref.ExperimentGroups); err != nil {
		return nil, fmt.Errorf("corrupt experiment_groups column for user %s: %w", userID, err)
	}

	if acceptedTC.Valid && acceptedTC.String != "" {
		t, err := parseTimestamp(acceptedTC.String)
		if err != nil {
			return nil, err
		}
		pref.AcceptedTC = &t
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return &pref, nil
}

// Store saves a new Preference record.
func (r *SQLPreferenceRepository) Store(pref *user.Preference) error {
	const query = `
		INSERT INTO preferences (user_id, language, sessions, accepted_tc,
		                         sensitive_data_requirement, answered_questions, experiment_groups)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	return r.write(query, pref, func(args []any) []any { return args })
}

// Update modifies an existing Preference record.
func (r *SQLPreferenceRepository) Update(pref *user.Preference) error {
	const query = `
		UPDATE preferences
		SET language = ?, sessions = ?, accepted_tc = ?,
		    sensitive_data_requirement = ?, answered_questions = ?, experiment_groups = ?
		WHERE user_id = ?`

	return r.write(query, pref, func(args []any) []any {
		// Move user_id from the head to the WHERE position.
		return append(args[1:], args[0])
	})
}

func (r *SQLPreferenceRepository) write(query string, pref *user.Preference, arrange func([]any) []any) error {
	start := time.Now()
	r.logger.Database().Debug("Executing preferences write", "userId", pref.UserID)

	sessionsJSON, err := json.Marshal(pref.Sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions for user %s: %w", pref.UserID, err)
	}
	answered := pref.AnsweredQuestions
	if answered == nil {
		answered = map[int][]string{}
	}
	answeredJSON, err := json.Marshal(answered)
	if err != nil {
		return fmt.Errorf("failed to encode answered questions for user %s: %w", pref.UserID, err)
	}
	groups := pref.ExperimentGroups
	if groups == nil {
		groups = map[int]string{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to encode experiment groups for user %s: %w", pref.UserID, err)
	}

	var acceptedTC any
	if pref.AcceptedTC != nil {
		acceptedTC = pref.AcceptedTC.UTC().Format(time.RFC3339)
	}

	args := arrange([]any{
		pref.UserID,
		string(pref.Language),
		string(sessionsJSON),
		acceptedTC,
		string(pref.SensitiveDataRequirement),
		string(answeredJSON),
		string(groupsJSON),
	})

	if _, err := r.db.Exec(query, args...); err != nil {
		r.logger.Database().Error("Preferences write failed", "error", err.Error(), "userId", pref.UserID)
		return err
	}

	r.logger.Database().Info("Preferences write completed", "userId", pref.UserID, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}
