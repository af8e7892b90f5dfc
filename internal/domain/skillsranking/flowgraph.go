package skillsranking

import "fmt"

// Transition describes the configured next step for a (group, phase) pair.
// AutoAdvance marks phases a group passes through without user input; the
// transition is still committed exactly once, it just isn't gated on a
// continue action.
type Transition struct {
	Next        Phase
	AutoAdvance bool
}

// ErrNoTransition is returned when the flow graph has no entry for a
// (group, phase) pair. This is a configuration defect: callers must halt the
// flow rather than guess a fallback phase.
type ErrNoTransition struct {
	Group Group
	Phase Phase
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("no flow transition configured for group %s at phase %s", e.Group, e.Phase)
}

// flowGraph is the single declarative transition table for the experiment.
// Branching per cohort lives here and nowhere else.
var flowGraph = map[Group]map[Phase]Transition{
	Group1: {
		PhaseInitial:             {Next: PhaseBriefing},
		PhaseBriefing:            {Next: PhaseProofOfValue},
		PhaseProofOfValue:        {Next: PhaseMarketDisclosure},
		PhaseMarketDisclosure:    {Next: PhaseJobSeekerDisclosure},
		PhaseJobSeekerDisclosure: {Next: PhasePerceivedRank},
		PhasePerceivedRank:       {Next: PhaseCompleted},
	},
	Group2: {
		PhaseInitial:          {Next: PhaseBriefing},
		PhaseBriefing:         {Next: PhaseProofOfValue},
		PhaseProofOfValue:     {Next: PhaseMarketDisclosure},
		PhaseMarketDisclosure: {Next: PhasePerceivedRank},
		PhasePerceivedRank:    {Next: PhaseCompleted},
	},
	Group3: {
		PhaseInitial:             {Next: PhaseBriefing},
		PhaseBriefing:            {Next: PhaseProofOfValue},
		PhaseProofOfValue:        {Next: PhaseJobSeekerDisclosure},
		PhaseJobSeekerDisclosure: {Next: PhasePerceivedRank},
		PhasePerceivedRank:       {Next: PhaseCompleted},
	},
	Group4: {
		PhaseInitial:       {Next: PhaseBriefing},
		PhaseBriefing:      {Next: PhaseProofOfValue, AutoAdvance: true},
		PhaseProofOfValue:  {Next: PhasePerceivedRank, AutoAdvance: true},
		PhasePerceivedRank: {Next: PhaseCompleted},
	},
}

// NextTransition looks up the configured transition for a group at a phase.
// A missing entry yields *ErrNoTransition.
func NextTransition(group Group, current Phase) (Transition, error) {
	phases, ok := flowGraph[group]
	if !ok {
		return Transition{}, &ErrNoTransition{Group: group, Phase: current}
	}
	t, ok := phases[current]
	if !ok {
		return Transition{}, &ErrNoTransition{Group: group, Phase: current}
	}
	return t, nil
}

// IsTerminal reports whether a phase has no outgoing transition for a group.
func IsTerminal(group Group, phase Phase) bool {
	phases, ok := flowGraph[group]
	if !ok {
		return true
	}
	_, ok = phases[phase]
	return !ok
}

// SeesPhase reports whether a group's flow passes through the given phase at
// all. Used by hosting views to decide which disclosure components exist for
// a session.
func SeesPhase(group Group, phase Phase) bool {
	phases, ok := flowGraph[group]
	if !ok {
		return false
	}
	if _, ok := phases[phase]; ok {
		return true
	}
	for _, t := range phases {
		if t.Next == phase {
			return true
		}
	}
	return false
}
