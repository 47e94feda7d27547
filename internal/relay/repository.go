package relay

import (
	"sync"
	"time"
)

// Repository defines the concurrency-safe contract for the per-robot frame
// and streaming-flag state. Writes are last-write-wins per robot id.
type Repository interface {
	// PutFrame overwrites the latest frame for id and stamps its receipt time.
	PutFrame(id RobotID, data []byte)

	// GetFrame returns the latest frame for id. ok is false if nothing has
	// ever been uploaded for it.
	GetFrame(id RobotID) (frame Frame, ok bool)

	// SetStreaming stores the advisory streaming flag for id.
	SetStreaming(id RobotID, streaming bool)

	// GetStreaming returns the streaming flag for id, false for unknown ids.
	GetStreaming(id RobotID) bool

	// RobotCount returns the number of robot ids seen so far.
	// Used for metrics.
	RobotCount() int
}

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store, now: time.Now}
}

// PutFrame implements Repository.PutFrame.
// The repository keeps data as given; callers must not modify it afterwards.
func (r *InMemoryRepository) PutFrame(id RobotID, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	robot := r.getOrCreateRobotLocked(id)
	robot.Frame = &Frame{Data: data, ReceivedAt: r.now().UTC()}
}

// GetFrame implements Repository.GetFrame.
func (r *InMemoryRepository) GetFrame(id RobotID) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	robot, exists := r.store.GetRobot(id)
	if !exists || robot.Frame == nil {
		return Frame{}, false
	}
	return *robot.Frame, true
}

// SetStreaming implements Repository.SetStreaming.
func (r *InMemoryRepository) SetStreaming(id RobotID, streaming bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getOrCreateRobotLocked(id).Streaming = streaming
}

// GetStreaming implements Repository.GetStreaming.
func (r *InMemoryRepository) GetStreaming(id RobotID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	robot, exists := r.store.GetRobot(id)
	return exists && robot.Streaming
}

// RobotCount implements Repository.RobotCount.
func (r *InMemoryRepository) RobotCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.store.ListRobotIDs())
}

// getOrCreateRobotLocked returns an existing robot or creates a new one.
// Caller must hold r.mu in write mode.
func (r *InMemoryRepository) getOrCreateRobotLocked(id RobotID) *RobotState {
	if robot, ok := r.store.GetRobot(id); ok {
		return robot
	}

	robot := &RobotState{ID: id}
	r.store.SetRobot(robot)
	return robot
}
