package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// Registry owns the managers of all live browser sessions. Each session
// gets its own identity client over the shared backend.
type Registry struct {
	backend     identity.Backend
	opts        Options
	idleTimeout time.Duration
	logger      *logging.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

type entry struct {
	manager  *Manager
	client   *identity.Client
	lastSeen time.Time
}

// NewRegistry builds a registry. idleTimeout <= 0 disables expiry.
func NewRegistry(backend identity.Backend, opts Options, idleTimeout time.Duration) *Registry {
	if backend == nil {
		panic("session: identity backend required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		backend:     backend,
		opts:        opts,
		idleTimeout: idleTimeout,
		logger:      opts.Logger,
		sessions:    make(map[string]*entry),
	}
}

// Create starts a manager for a new session id.
func (r *Registry) Create(ctx context.Context) (*Manager, error) {
	client := identity.NewClient(r.backend)
	m := NewManager(uuid.NewString(), client, r.opts)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.sessions[m.ID()] = &entry{manager: m, client: client, lastSeen: r.opts.Now()}
	r.mu.Unlock()

	m.Start(ctx)
	r.logger.Debug("session created", "session_id", m.ID())
	return m, nil
}

// Get returns the live manager for id and marks it as recently used.
func (r *Registry) Get(id string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.opts.Now()
	return e.manager, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Remove shuts down and forgets a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		e.shutdown()
	}
}

// Sweep closes sessions idle since before now-idleTimeout.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTimeout)
	var expired []*entry
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.shutdown()
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.opts.Now())
		}
	}
}

// Close shuts down every session. Later Create calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e)
	}
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range all {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			e.shutdown()
		}(e)
	}
	wg.Wait()
}

// shutdown stops the session and discards notices nobody will drain.
func (e *entry) shutdown() {
	e.manager.Close()
	e.client.Close()
	if _, err := e.manager.feed.Drain(context.Background(), e.manager.id); err != nil {
		e.manager.logger.Warn("discard notices failed", "error", err)
	}
}
