package skillsranking

import (
	"fmt"
	"time"
)

// PhaseEntry records one committed phase with the time it was entered.
type PhaseEntry struct {
	Name Phase     `json:"name"`
	Time time.Time `json:"time"`
}

// Score is the server-computed result revealed during the disclosure phases.
// Opaque to clients; the service stores and serves it as-is.
type Score struct {
	JobsMatchedPercentage float64   `json:"jobsMatchedPercentage"`
	ComparisonRank        int       `json:"comparisonRank"`
	ComparisonLabel       string    `json:"comparisonLabel"`
	DemandLabels          []string  `json:"demandLabels,omitempty"`
	CalculatedAt          time.Time `json:"calculatedAt"`
}

// State is the server-authoritative snapshot of one experiment run. Phases is
// append-only and ordered; the last entry is the current phase. Clients never
// fabricate a transition locally; the snapshot returned by the server is
// ground truth.
type State struct {
	SessionID       int          `json:"sessionId"`
	ExperimentGroup Group        `json:"experimentGroup"`
	Phases          []PhaseEntry `json:"phases"`
	Score           *Score       `json:"score,omitempty"`
	StartedAt       time.Time    `json:"startedAt"`
}

// NewState creates the snapshot for a freshly started experiment run.
func NewState(sessionID int, group Group, startedAt time.Time) *State {
	return &State{
		SessionID:       sessionID,
		ExperimentGroup: group,
		Phases:          []PhaseEntry{{Name: PhaseInitial, Time: startedAt}},
		StartedAt:       startedAt,
	}
}

// CurrentPhase returns the last committed phase, or PhaseInitial when the
// run has no entries yet.
func (s *State) CurrentPhase() Phase {
	if len(s.Phases) == 0 {
		return PhaseInitial
	}
	return s.Phases[len(s.Phases)-1].Name
}

// Advance appends next to the phase history after validating it against the
// flow graph for this run's experiment group. The history only grows; an
// out-of-graph request is rejected.
func (s *State) Advance(next Phase, at time.Time) error {
	if !next.IsValid() {
		return fmt.Errorf("unknown phase %q", next)
	}

	t, err := NextTransition(s.ExperimentGroup, s.CurrentPhase())
	if err != nil {
		return err
	}
	if t.Next != next {
		return fmt.Errorf("phase %s is not a valid successor of %s for group %s (expected %s)",
			next, s.CurrentPhase(), s.ExperimentGroup, t.Next)
	}

	s.Phases = append(s.Phases, PhaseEntry{Name: next, Time: at})
	return nil
}

// Completed reports whether the run reached its terminal phase.
func (s *State) Completed() bool {
	return IsTerminal(s.ExperimentGroup, s.CurrentPhase())
}

// Clone returns a structurally independent copy of the snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Phases = make([]PhaseEntry, len(s.Phases))
	copy(out.Phases, s.Phases)
	if s.Score != nil {
		score := *s.Score
		score.DemandLabels = append([]string(nil), s.Score.DemandLabels...)
		out.Score = &score
	}
	return &out
}
