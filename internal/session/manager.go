// Package session owns the explicit session-context objects that replace
// the mobile client's ambient global user state. A session is scoped to one
// (project, participant) pair and holds that pair's visit tracker.
package session

import (
	"sync"

	"github.com/onnwee/trailmark/internal/visit"
)

// key identifies one session.
type key struct {
	projectID int
	username  string
}

// Manager hands out visit sessions, creating each (project, participant)
// session at most once per process. Safe for concurrent use.
type Manager struct {
	gateway visit.Gateway
	metrics *visit.Metrics

	mu       sync.Mutex
	sessions map[key]*visit.Session
}

// NewManager creates a session manager over the given gateway.
func NewManager(gateway visit.Gateway, metrics *visit.Metrics) *Manager {
	return &Manager{
		gateway:  gateway,
		metrics:  metrics,
		sessions: make(map[key]*visit.Session),
	}
}

// Session returns the session for the (project, participant) pair, creating
// it if needed. An empty username is refused with ErrAuthenticationRequired;
// anonymous users have no session to track against.
func (m *Manager) Session(projectID int, username string) (*visit.Session, error) {
	if username == "" {
		return nil, visit.ErrAuthenticationRequired
	}

	k := key{projectID: projectID, username: username}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[k]; ok {
		return s, nil
	}
	s := visit.NewSession(projectID, username, m.gateway, m.metrics)
	m.sessions[k] = s
	return s, nil
}

// Evict drops the session for the pair, if any. Called on logout so the next
// request rebuilds state from the store instead of inheriting a stale set.
func (m *Manager) Evict(projectID int, username string) {
	k := key{projectID: projectID, username: username}
	m.mu.Lock()
	delete(m.sessions, k)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
