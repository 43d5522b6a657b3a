package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shp2imdf/workbench/internal/upstream"
)

// Manager owns the session lifecycle: creation, lookup, snapshot persistence,
// TTL pruning and oldest-first eviction above the session cap.
type Manager struct {
	backend     Backend
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mu   sync.Mutex
	live map[string]*State
}

func NewManager(backend Backend, ttl time.Duration, maxSessions int) *Manager {
	return &Manager{
		backend:     backend,
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		live:        map[string]*State{},
	}
}

// Create allocates a workbench session around a freshly imported converter
// session. Expired sessions are pruned first and the oldest session is
// evicted when the cap would be exceeded.
func (m *Manager) Create(ctx context.Context, result upstream.ImportResult) (*State, error) {
	if _, err := m.PruneExpired(ctx); err != nil {
		return nil, err
	}
	if err := m.evictIfNeeded(ctx); err != nil {
		return nil, err
	}

	state := NewState(uuid.NewString(), result.SessionID, m.now())
	state.SetFiles(result.Files)
	state.SetCleanupSummary(result.CleanupSummary)
	state.SetImportWarnings(result.Warnings)
	state.SetStep(1)

	if err := m.backend.Save(ctx, snapshot(state)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.live[state.ID()] = state
	m.mu.Unlock()
	return state, nil
}

// Get returns the live state for a session id, rehydrating from the backend
// when the workbench restarted since the session was created. Expired
// sessions report not found.
func (m *Manager) Get(ctx context.Context, id string, touch bool) (*State, bool, error) {
	m.mu.Lock()
	state, ok := m.live[id]
	m.mu.Unlock()

	if !ok {
		record, found, err := m.backend.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		state = rehydrate(record)
		m.mu.Lock()
		m.live[id] = state
		m.mu.Unlock()
	}

	if m.expired(state.LastAccessed()) {
		if err := m.Remove(ctx, id); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	if touch {
		state.Touch(m.now())
	}
	return state, true, nil
}

// Save persists the durable snapshot of a session.
func (m *Manager) Save(ctx context.Context, state *State) error {
	return m.backend.Save(ctx, snapshot(state))
}

// Remove clears a session's slices and drops it from the live map and the
// backend.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	state, ok := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()
	if ok {
		state.Reset()
	}
	if err := m.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// PruneExpired removes every session whose TTL has lapsed and returns how
// many were dropped.
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	records, err := m.backend.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, record := range records {
		if m.expired(record.LastAccessed) {
			if err := m.Remove(ctx, record.ID); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

func (m *Manager) evictIfNeeded(ctx context.Context) error {
	if m.maxSessions <= 0 {
		return nil
	}
	records, err := m.backend.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(records) < m.maxSessions {
		return nil
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastAccessed.Before(records[j].LastAccessed)
	})
	for _, record := range records[:len(records)-m.maxSessions+1] {
		if err := m.Remove(ctx, record.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) expired(lastAccessed time.Time) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.now().Sub(lastAccessed) > m.ttl
}
