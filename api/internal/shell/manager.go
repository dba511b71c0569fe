package shell

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Surihub/handmath/api/internal/history"
)

const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10_000
)

// Manager hands out one App per owner (a browser session or a chat),
// opening the owner's history slot on first use. Idle sessions are dropped
// by Sweep; their history stays in the slot.
type Manager struct {
	tutor Tutor
	slot  history.Slot

	IdleTTL     time.Duration
	MaxSessions int

	now   func() time.Time
	mu    sync.Mutex // serializes creation and eviction
	apps  sync.Map   // owner -> *session
	count int
}

type session struct {
	app      *App
	lastUsed atomic.Int64 // unix nanos
}

func NewManager(tutor Tutor, slot history.Slot) *Manager {
	return &Manager{
		tutor:       tutor,
		slot:        slot,
		IdleTTL:     DefaultIdleTTL,
		MaxSessions: DefaultMaxSessions,
		now:         time.Now,
	}
}

func (m *Manager) Get(ctx context.Context, owner string) (*App, error) {
	if v, ok := m.apps.Load(owner); ok {
		s := v.(*session)
		s.lastUsed.Store(m.now().UnixNano())
		return s.app, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.apps.Load(owner); ok {
		s := v.(*session)
		s.lastUsed.Store(m.now().UnixNano())
		return s.app, nil
	}
	if m.MaxSessions > 0 && m.count >= m.MaxSessions {
		m.evictOldestLocked()
	}
	log, err := history.Open(ctx, m.slot, history.SlotKey(owner))
	if err != nil {
		return nil, err
	}
	s := &session{app: New(m.tutor, log)}
	s.lastUsed.Store(m.now().UnixNano())
	m.apps.Store(owner, s)
	m.count++
	return s.app, nil
}

func (m *Manager) Forget(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps.LoadAndDelete(owner); ok {
		m.count--
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Sweep forgets sessions unused for longer than IdleTTL that have no
// request in flight, and reports how many it dropped.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.IdleTTL).UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	m.apps.Range(func(k, v any) bool {
		s := v.(*session)
		if s.lastUsed.Load() < cutoff && !s.app.Busy() {
			m.apps.Delete(k)
			m.count--
			n++
		}
		return true
	})
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("shell: idle sessions dropped", "count", n, "left", m.Len())
			}
		}
	}
}

// evictOldestLocked makes room for one session, preferring idle ones.
func (m *Manager) evictOldestLocked() {
	var (
		oldestKey any
		oldest    int64
	)
	m.apps.Range(func(k, v any) bool {
		s := v.(*session)
		if s.app.Busy() {
			return true
		}
		if t := s.lastUsed.Load(); oldestKey == nil || t < oldest {
			oldestKey, oldest = k, t
		}
		return true
	})
	if oldestKey != nil {
		m.apps.Delete(oldestKey)
		m.count--
	}
}
