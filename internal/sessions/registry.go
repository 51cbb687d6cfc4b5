// Package sessions tracks live event streams between the agent loop and
// connected clients. A session is opened when a client attaches, carries
// agent events to that client, and is torn down exactly once no matter
// which side disconnects first.
package sessions

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/observability"
)

// eventBufferSize bounds how far a producer may run ahead of a slow
// consumer before events are dropped.
const eventBufferSize = 128

type session struct {
	mu     sync.RWMutex
	closed bool
	events chan agent.Event
}

// send delivers ev to the session's consumer. It reports false when the
// session has been closed. A consumer that has stopped draining does not
// block the producer; overflow events are dropped.
func (s *session) send(ev agent.Event, logger *observability.Logger, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
	default:
		if logger != nil {
			logger.Warn(context.Background(), "session buffer full, dropping event",
				"session_id", id,
				"event_type", string(ev.Type))
		}
	}
	return true
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Registry owns all open sessions. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	open    map[string]*session
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRegistry returns an empty registry. logger and metrics may be nil.
func NewRegistry(logger *observability.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		open:    make(map[string]*session),
		logger:  logger,
		metrics: metrics,
	}
}

// Open registers a new session and returns its id together with the
// channel the consumer reads events from. The channel is closed when the
// session is.
func (r *Registry) Open() (string, <-chan agent.Event) {
	id := uuid.NewString()
	s := &session{events: make(chan agent.Event, eventBufferSize)}

	r.mu.Lock()
	r.open[id] = s
	count := len(r.open)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionStarted()
	}
	if r.logger != nil {
		r.logger.Debug(context.Background(), "session opened",
			"session_id", id,
			"open_sessions", count)
	}
	return id, s.events
}

// Send forwards ev to the session's consumer. It reports false when the
// session id is unknown or the session has been closed.
func (r *Registry) Send(id string, ev agent.Event) bool {
	r.mu.Lock()
	s, ok := r.open[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return s.send(ev, r.logger, id)
}

// Close tears down the session and removes it from the registry. Closing
// an unknown or already-closed session is a no-op.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.open[id]
	if ok {
		delete(r.open, id)
	}
	count := len(r.open)
	r.mu.Unlock()
	if !ok {
		return
	}

	s.close()
	if r.metrics != nil {
		r.metrics.SessionEnded()
	}
	if r.logger != nil {
		r.logger.Debug(context.Background(), "session closed",
			"session_id", id,
			"open_sessions", count)
	}
}

// Exists reports whether id names an open session.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[id]
	return ok
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
