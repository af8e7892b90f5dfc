// Package skillsranking provides the SQL-based implementation of the
// experiment state repository.
package skillsranking

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// SQLStateRepository persists experiment state snapshots. The phase history
// and score are stored as JSON columns; the history is written whole on every
// update so its append-only ordering survives round-trips.
type SQLStateRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLStateRepository creates a new instance of the repository.
func NewSQLStateRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLStateRepository {
	return &SQLStateRepository{
		db:     db,
		logger: logger,
	}
}

// FindBySessionID retrieves the experiment state for a session.
func (r *SQLStateRepository) FindBySessionID(sessionID int) (*skillsranking.State, error) {
	const query = `
		SELECT session_id, experiment_group, phases, score, started_at
		FROM ranking_states
		WHERE session_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading ranking state", "sessionId", sessionID)

	var state skillsranking.State
	var group, phasesJSON, startedAtStr string
	var scoreJSON sql.NullString

	err := r.db.QueryRow(query, sessionID).Scan(&state.SessionID, &group, &phasesJSON, &scoreJSON, &startedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("Ranking state not found", "sessionId", sessionID)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load ranking state", "error", err.Error(), "sessionId", sessionID)
		return nil, err
	}

	state.ExperimentGroup = skillsranking.Group(group)
	if err := json.Unmarshal([]byte(phasesJSON), &state.Phases); err != nil {
		return nil, fmt.Errorf("corrupt phases column for session %d: %w", sessionID, err)
	}
	if scoreJSON.Valid && scoreJSON.String != "" {
		var score skillsranking.Score
		if err := json.Unmarshal([]byte(scoreJSON.String), &score); err != nil {
			return nil, fmt.Errorf("corrupt score column for session %d: %w", sessionID, err)
		}
		state.Score = &score
	}
	state.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return &state, nil
}

// Store saves the snapshot for a freshly started experiment run.
func (r *SQLStateRepository) Store(state *skillsranking.State) error {
	const query = `
		INSERT INTO ranking_states (session_id, experiment_group, phases, score, started_at)
		VALUES (?, ?, ?, ?, ?)`

	start := time.Now()
	phasesJSON, scoreJSON, err := encodeState(state)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(query, state.SessionID, string(state.ExperimentGroup), phasesJSON, scoreJSON,
		state.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		r.logger.Database().Error("Ranking state insert failed", "error", err.Error(), "sessionId", state.SessionID)
		return err
	}

	r.logger.Database().Info("Ranking state insert completed", "sessionId", state.SessionID, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// Update rewrites the phase history and score for an existing run. The
// experiment group and start time are immutable and deliberately not touched.
func (r *SQLStateRepository) Update(state *skillsranking.State) error {
	const query = `UPDATE ranking_states SET phases = ?, score = ? WHERE session_id = ?`

	start := time.Now()
	phasesJSON, scoreJSON, err := encodeState(state)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(query, phasesJSON, scoreJSON, state.SessionID)
	if err != nil {
		r.logger.Database().Error("Ranking state update failed", "error", err.Error(), "sessionId", state.SessionID)
		return err
	}

	r.logger.Database().Info("Ranking state update completed", "sessionId", state.SessionID, "duration", time.Since(start))
	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

func encodeState(state *skillsranking.State) (string, any, error) {
	phasesJSON, err := json.Marshal(state.Phases)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode phases for session %d: %w", state.SessionID, err)
	}

	var scoreJSON any
	if state.Score != nil {
		encoded, err := json.Marshal(state.Score)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode score for session %d: %w", state.SessionID, err)
		}
		scoreJSON = string(encoded)
	}
	return string(phasesJSON), scoreJSON, nil
}
