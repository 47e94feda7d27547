package relay

// Store is the persistence abstraction for robot state.
// The Repository uses Store for all reads and writes and owns locking;
// implementations need not be safe for concurrent use.
type Store interface {
	GetRobot(id RobotID) (*RobotState, bool)
	SetRobot(s *RobotState)
	ListRobotIDs() []RobotID
}

// InMemoryStore is an in-memory implementation of Store. Entries live for
// the life of the process.
type InMemoryStore struct {
	robots map[RobotID]*RobotState
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		robots: make(map[RobotID]*RobotState),
	}
}

// GetRobot implements Store.GetRobot.
func (s *InMemoryStore) GetRobot(id RobotID) (*RobotState, bool) {
	st, ok := s.robots[id]
	return st, ok
}

// SetRobot implements Store.SetRobot.
func (s *InMemoryStore) SetRobot(st *RobotState) {
	s.robots[st.ID] = st
}

// ListRobotIDs implements Store.ListRobotIDs.
func (s *InMemoryStore) ListRobotIDs() []RobotID {
	ids := make([]RobotID, 0, len(s.robots))
	for id := range s.robots {
		ids = append(ids, id)
	}
	return ids
}
