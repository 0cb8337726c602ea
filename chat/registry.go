package chat

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry hands out at most one live room per project. Rooms are created
// lazily on first lookup and recreated transparently after an idle shutdown.
type Registry struct {
	mu    sync.Mutex
	store Store
	rooms map[string]*Room
}

// NewRegistry creates an empty registry over the shared store
func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		rooms: make(map[string]*Room),
	}
}

// Lookup resolves the live room for a project, creating one if needed.
// A room that shut down since the last lookup is replaced, so callers always
// get a room that accepts events.
func (g *Registry) Lookup(projectID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[projectID]
	if ok && !room.Closed() {
		return room
	}

	room = NewRoom(projectID, g.store)
	g.rooms[projectID] = room
	zap.S().Debugw("chat room started", "projectId", projectID)
	return room
}

// Store exposes the shared message store for read paths that do not need a
// live room
func (g *Registry) Store() Store {
	return g.store
}

// SweepIdle shuts down rooms with no sessions that have been quiet for at
// least maxIdle and returns how many were stopped
func (g *Registry) SweepIdle(maxIdle time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	stopped := 0
	for projectID, room := range g.rooms {
		if room.ShutdownIfIdle(maxIdle) {
			delete(g.rooms, projectID)
			stopped++
			zap.S().Debugw("chat room stopped after idling", "projectId", projectID)
		}
	}
	return stopped
}

// Close stops every room; used on shutdown
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for projectID, room := range g.rooms {
		room.Stop()
		delete(g.rooms, projectID)
	}
}
