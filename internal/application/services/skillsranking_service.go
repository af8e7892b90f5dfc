package services

import (
	"errors"
	"math/rand"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
)

// SkillsRankingService owns the authoritative experiment state. Every
// transition is validated against the flow graph before it is appended; the
// stored phase history only ever grows.
type SkillsRankingService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	stateRepo   skillsranking.StateRepository
	prefService *PreferenceService
	now         func() time.Time
}

// NewSkillsRankingService creates a new skills ranking service
func NewSkillsRankingService(
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	stateRepo skillsranking.StateRepository,
	prefService *PreferenceService,
) *SkillsRankingService {
	return &SkillsRankingService{
		logger:      logger,
		perfTracker: perfTracker,
		stateRepo:   stateRepo,
		prefService: prefService,
		now:         time.Now,
	}
}

// GetState returns the experiment state for a session.
func (s *SkillsRankingService) GetState(sessionID int) (*skillsranking.State, error) {
	state, err := s.stateRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, servicerror.New("SkillsRankingService", "GetState", servicerror.KindRemote, "state lookup failed", err)
	}
	if state == nil {
		return nil, servicerror.New("SkillsRankingService", "GetState", servicerror.KindPrecondition, "no experiment state for session", nil)
	}
	return state, nil
}

// Start creates the experiment state for a new session. The experiment group
// is assigned uniformly at random here, exactly once, and is immutable for
// the life of the session.
func (s *SkillsRankingService) Start(userID string, sessionID int) (*skillsranking.State, error) {
	marker := s.perfTracker.StartOperation("ranking_start")
	defer marker.Complete()

	existing, err := s.stateRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, servicerror.New("SkillsRankingService", "Start", servicerror.KindRemote, "state lookup failed", err)
	}
	if existing != nil {
		// Idempotent: restarting an existing session returns its state with
		// the originally assigned group. The preference write may have failed
		// after the state was stored, so re-register before serving it.
		if err := s.registerSession(userID, existing); err != nil {
			return nil, err
		}
		marker.SetSuccess(true)
		return existing, nil
	}

	group := skillsranking.Groups[rand.Intn(len(skillsranking.Groups))]
	state := skillsranking.NewState(sessionID, group, s.now().UTC())
	if err := s.stateRepo.Store(state); err != nil {
		return nil, servicerror.New("SkillsRankingService", "Start", servicerror.KindRemote, "state creation failed", err)
	}

	if err := s.registerSession(userID, state); err != nil {
		return nil, err
	}

	s.logger.Flow().Info("Experiment started", "sessionId", sessionID, "group", group)
	marker.SetSuccess(true)
	return state, nil
}

// registerSession makes sure the preference record lists the session. The
// state and the preference live in separate tables, so a failure between the
// two writes must stay repairable on the next start of the same session.
func (s *SkillsRankingService) registerSession(userID string, state *skillsranking.State) error {
	pref, err := s.prefService.Get(userID)
	if err != nil {
		return err
	}
	for _, id := range pref.Sessions {
		if id == state.SessionID {
			return nil
		}
	}
	_, err = s.prefService.StartSession(userID, state.SessionID, string(state.ExperimentGroup))
	return err
}

// Advance appends nextPhase to the session's history after validating it
// against the flow graph. Re-submitting the current phase is treated as a
// replay and returns the unchanged snapshot. On the transition out of the
// briefing the score payload is computed and attached, so it is present
// before any disclosure phase renders.
func (s *SkillsRankingService) Advance(sessionID int, nextPhase skillsranking.Phase) (*skillsranking.State, error) {
	marker := s.perfTracker.StartOperation("ranking_advance")
	defer marker.Complete()

	state, err := s.GetState(sessionID)
	if err != nil {
		return nil, err
	}

	if !nextPhase.IsValid() {
		return nil, servicerror.New("SkillsRankingService", "Advance", servicerror.KindValidation, "unknown phase", nil)
	}

	if state.CurrentPhase() == nextPhase {
		s.logger.Flow().Debug("Replayed transition ignored", "sessionId", sessionID, "phase", nextPhase)
		marker.SetSuccess(true)
		return state, nil
	}

	if err := state.Advance(nextPhase, s.now().UTC()); err != nil {
		var noTransition *skillsranking.ErrNoTransition
		if errors.As(err, &noTransition) {
			s.logger.Flow().Error("Unmapped flow transition", "sessionId", sessionID, "group", state.ExperimentGroup, "phase", state.CurrentPhase(), "requested", nextPhase)
			return nil, servicerror.New("SkillsRankingService", "Advance", servicerror.KindConfiguration, "unmapped flow transition", err)
		}
		return nil, servicerror.New("SkillsRankingService", "Advance", servicerror.KindValidation, "transition rejected", err)
	}

	if state.Score == nil && nextPhase == skillsranking.PhaseProofOfValue {
		state.Score = s.computeScore(state)
	}

	if err := s.stateRepo.Update(state); err != nil {
		return nil, servicerror.New("SkillsRankingService", "Advance", servicerror.KindRemote, "state update failed", err)
	}

	s.logger.Flow().Info("Phase advanced", "sessionId", sessionID, "group", state.ExperimentGroup, "phase", nextPhase)
	marker.SetSuccess(true)
	return state, nil
}

// computeScore produces the score payload served back through the snapshot.
// The real ranking model lives elsewhere; this produces a plausible,
// deterministic-per-session placeholder the disclosure phases can render.
func (s *SkillsRankingService) computeScore(state *skillsranking.State) *skillsranking.Score {
	rng := rand.New(rand.NewSource(int64(state.SessionID)))

	matched := 35 + rng.Intn(60)
	rank := 1 + rng.Intn(10)
	label := "average"
	switch {
	case rank <= 3:
		label = "top"
	case rank >= 8:
		label = "below average"
	}

	demand := []string{"communication", "problem solving"}
	if matched > 70 {
		demand = append(demand, "leadership")
	}

	return &skillsranking.Score{
		JobsMatchedPercentage: float64(matched),
		ComparisonRank:        rank,
		ComparisonLabel:       label,
		DemandLabels:          demand,
		CalculatedAt:          s.now().UTC(),
	}
}
