package skillsranking

// StateRepository defines persistence for experiment state snapshots.
// One snapshot exists per conversation session.
type StateRepository interface {
	FindBySessionID(sessionID int) (*State, error)
	Store(state *State) error
	Update(state *State) error
}
