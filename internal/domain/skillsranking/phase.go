// Package skillsranking holds the domain model for the skills ranking
// experiment: phases, experiment groups, the flow graph, and the
// server-authoritative state snapshot.
package skillsranking

// Phase is a named step in the experiment flow.
type Phase string

const (
	PhaseInitial             Phase = "INITIAL"
	PhaseBriefing            Phase = "BRIEFING"
	PhaseProofOfValue        Phase = "PROOF_OF_VALUE"
	PhaseMarketDisclosure    Phase = "MARKET_DISCLOSURE"
	PhaseJobSeekerDisclosure Phase = "JOB_SEEKER_DISCLOSURE"
	PhasePerceivedRank       Phase = "PERCEIVED_RANK"
	PhaseCompleted           Phase = "COMPLETED"
)

// IsValid reports whether p is one of the known phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseInitial, PhaseBriefing, PhaseProofOfValue, PhaseMarketDisclosure,
		PhaseJobSeekerDisclosure, PhasePerceivedRank, PhaseCompleted:
		return true
	}
	return false
}

// Group is one of the four fixed experiment cohorts. Assignment happens once
// per session and is immutable thereafter.
type Group string

const (
	Group1 Group = "GROUP_1" // full disclosure: market + job-seeker
	Group2 Group = "GROUP_2" // market disclosure only
	Group3 Group = "GROUP_3" // job-seeker disclosure only
	Group4 Group = "GROUP_4" // control: no disclosure
)

// Groups lists all experiment cohorts in assignment order.
var Groups = []Group{Group1, Group2, Group3, Group4}

// IsValid reports whether g is one of the known experiment groups.
func (g Group) IsValid() bool {
	switch g {
	case Group1, Group2, Group3, Group4:
		return true
	}
	return false
}
