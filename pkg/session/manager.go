package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// DefaultLockTTL bounds a distributed lock held by a crashed replica.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to live sessions.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a session manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release after unlocking it.
func (m *Manager) acquire(connectionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[connectionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[connectionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when unused.
func (m *Manager) release(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[connectionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, connectionID)
	}
}

// activeLocks reports how many lock entries are alive.
func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// Create stores a fresh session, replacing any leftover state under the same id.
func (m *Manager) Create(ctx context.Context, connectionID string, state *domain.SessionState) error {
	return m.WithLock(ctx, connectionID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, connectionID, state); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

// Load retrieves an existing session.
func (m *Manager) Load(ctx context.Context, connectionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, connectionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, connectionID)
		return err
	})
	return state, err
}

// Update runs fn on the stored state and saves the result when fn succeeds.
// The whole read-modify-write holds the connection lock, so turns of one
// connection never interleave.
func (m *Manager) Update(ctx context.Context, connectionID string, fn func(context.Context, *domain.SessionState) error) error {
	return m.WithLock(ctx, connectionID, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, connectionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			return fmt.Errorf("failed to load session: %w", err)
		}
		if err := fn(ctx, state); err != nil {
			return err
		}
		if err := m.store.Save(ctx, connectionID, state); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// Delete removes the session and returns its last state.
// Deleting an unknown session returns domain.ErrSessionNotFound.
// A record that exists but cannot be read is still deleted; the load error is
// returned with a nil state.
func (m *Manager) Delete(ctx context.Context, connectionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, connectionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, connectionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if delErr := m.store.Delete(ctx, connectionID); delErr != nil {
			return errors.Join(err, fmt.Errorf("failed to delete session: %w", delErr))
		}
		if err != nil {
			state = nil
			return fmt.Errorf("session deleted with unreadable state: %w", err)
		}
		return nil
	})
	return state, err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes fn while holding the lock for the connection.
func (m *Manager) WithLock(ctx context.Context, connectionID string, fn func(context.Context) error) error {
	entry := m.acquire(connectionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(connectionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, connectionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's context may be gone by now; the lock must still go.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"connection_id", connectionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
