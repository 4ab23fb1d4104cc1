package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryStore keeps sessions in process memory. Sessions idle for longer than
// the TTL are invisible to Get and are removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	cron *cron.Cron
}

// NewMemoryStore creates a store. A non-positive ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

// Get returns a copy of the session header. Tables are shared and must be
// treated as read-only.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Put stores a copy of s, stamping its timestamps.
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	now := m.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.sessions[cp.ID] = &cp
	return nil
}

// Update runs fn on a copy under the store lock and stores the copy on success.
func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, ErrNotFound
	}
	cp := *s
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.ID = id
	cp.UpdatedAt = m.now()
	m.sessions[id] = &cp

	out := cp
	return &out, nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor schedules Sweep with a cron spec such as "@every 10m".
// Call Stop to end it.
func (m *MemoryStore) StartJanitor(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		removed := m.Sweep()
		slog.Debug("session sweep completed",
			"sessions_removed", removed,
			"sessions_remaining", m.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if err != nil {
		return err
	}
	m.cron = c
	c.Start()
	slog.Info("session janitor started", "schedule", spec, "ttl", m.ttl)
	return nil
}

// Stop halts the janitor and waits for a running sweep to finish.
func (m *MemoryStore) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	slog.Info("session janitor stopped")
}
