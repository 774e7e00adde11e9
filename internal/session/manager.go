package session

import (
	"context"
	"sync"
)

// TaggedEvent pairs an OutputEvent with the id of the session that produced
// it, so a Manager's fan-in can be consumed as a single stream.
type TaggedEvent struct {
	SessionID string
	Event     OutputEvent
}

type runningSession struct {
	loop   *AgentLoop
	cancel context.CancelFunc
}

// Manager owns every AgentLoop running in this process, keyed by session
// id, and fans their individual output streams into one combined,
// session-tagged stream.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*runningSession
	out      chan TaggedEvent
}

// NewManager creates an empty Manager. bufferSize sizes the combined
// output channel.
func NewManager(bufferSize int) *Manager {
	return &Manager{
		sessions: map[string]*runningSession{},
		out:      make(chan TaggedEvent, bufferSize),
	}
}

// Start registers loop under id and launches its Run goroutine, fanning
// its output into the Manager's combined stream until it exits.
func (m *Manager) Start(ctx context.Context, id string, loop *AgentLoop) {
	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.sessions[id] = &runningSession{loop: loop, cancel: cancel}
	m.mu.Unlock()

	go loop.Run(loopCtx)
	go m.fanIn(id, loop)
}

func (m *Manager) fanIn(id string, loop *AgentLoop) {
	for ev := range loop.Outputs() {
		m.out <- TaggedEvent{SessionID: id, Event: ev}
	}

	m.mu.Lock()
	rs, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		rs.cancel()
	}
}

// PushMessage delivers input to a running session. Reports false if id
// names no running session.
func (m *Manager) PushMessage(id string, input SessionInput) bool {
	m.mu.Lock()
	rs, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	rs.loop.Push(input)
	return true
}

// StopSession asks a running session to end: the loop finishes or abandons
// whatever turn is in flight and exits on its own. Reports false if id
// names no running session.
func (m *Manager) StopSession(id string) bool {
	return m.PushMessage(id, StopInput{})
}

// StopAll stops every currently running session.
func (m *Manager) StopAll() {
	for _, id := range m.ListSessions() {
		m.StopSession(id)
	}
}

// ListSessions returns the ids of every currently running session.
func (m *Manager) ListSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Outputs returns the Manager's combined, session-tagged output stream.
func (m *Manager) Outputs() <-chan TaggedEvent {
	return m.out
}

// OutputSender returns a send-only handle onto the combined output stream,
// letting a test harness inject synthetic events without a running
// AgentLoop behind them.
func (m *Manager) OutputSender() chan<- TaggedEvent {
	return m.out
}
