package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-redis keeps a pool reaper alive until the client is closed.
		goleak.IgnoreAnyFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
	)
}

// slowStore simulates latency to provoke lost updates if locking is missing.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, id string) (*domain.SessionState, error) {
	time.Sleep(time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s slowStore) Save(ctx context.Context, id string, state *domain.SessionState) error {
	time.Sleep(time.Millisecond)
	return s.Store.Save(ctx, id, state)
}

func TestManager_Lifecycle(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.Create(ctx, "conn-1", domain.NewSessionState("conn-1", "HELLO")))

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"conn-1"}, ids)

	last, err := mgr.Delete(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", last.CurrentNodeID)

	_, err = mgr.Load(ctx, "conn-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Delete(ctx, "conn-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_UpdateSerializesTurns(t *testing.T) {
	mgr := session.NewManager(slowStore{memory.NewStore()})
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "conn-1", domain.NewSessionState("conn-1", "HELLO")))

	const turns = 20
	var wg sync.WaitGroup
	for i := range turns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.Update(ctx, "conn-1", func(_ context.Context, s *domain.SessionState) error {
				s.RecordStorage("turn", []string{fmt.Sprint(i)})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := mgr.Load(ctx, "conn-1")
	require.NoError(t, err)
	assert.Len(t, state.StoredData, turns, "no turn may be lost")
	assert.Zero(t, mgr.ActiveLocks())
}

func TestManager_UpdateDiscardsFailedChanges(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "conn-1", domain.NewSessionState("conn-1", "HELLO")))

	boom := errors.New("boom")
	err := mgr.Update(ctx, "conn-1", func(_ context.Context, s *domain.SessionState) error {
		s.Advance("ELSEWHERE")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := mgr.Load(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", state.CurrentNodeID)
}

func TestManager_UpdateUnknownSession(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	err := mgr.Update(context.Background(), "ghost", func(context.Context, *domain.SessionState) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_LocksAreReleased(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	for i := range 1000 {
		id := fmt.Sprintf("conn-%d", i)
		_ = mgr.Create(ctx, id, domain.NewSessionState(id, "HELLO"))
		_, _ = mgr.Delete(ctx, id)
	}
	assert.Zero(t, mgr.ActiveLocks())
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, "parley:")

	// Two managers stand in for two replicas sharing Redis.
	replicas := []*session.Manager{
		session.NewManager(store, session.WithLocker(locker), session.WithLockTTL(5*time.Second)),
		session.NewManager(store, session.WithLocker(locker), session.WithLockTTL(5*time.Second)),
	}
	ctx := context.Background()
	require.NoError(t, replicas[0].Create(ctx, "conn-1", domain.NewSessionState("conn-1", "HELLO")))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := replicas[i%2].Update(ctx, "conn-1", func(_ context.Context, s *domain.SessionState) error {
				s.RecordStorage("turn", []string{fmt.Sprint(i)})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := replicas[1].Load(ctx, "conn-1")
	require.NoError(t, err)
	assert.Len(t, state.StoredData, 10)
	assert.False(t, mr.Exists("parley:lock:conn-1"))
}

func TestManager_LockerFailure(t *testing.T) {
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(failingLocker{}))
	err := mgr.Create(context.Background(), "conn-1", domain.NewSessionState("conn-1", "HELLO"))
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
	assert.Zero(t, mgr.ActiveLocks())
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("redis down")
}

func TestManager_DeleteUnreadableSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	mgr := session.NewManager(redis.NewFromClient(client))
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "conn-1", domain.NewSessionState("conn-1", "HELLO")))
	require.NoError(t, mr.Set("parley:session:conn-1", "{not json"))

	state, err := mgr.Delete(ctx, "conn-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Nil(t, state)
	assert.False(t, mr.Exists("parley:session:conn-1"))

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "conn-1")

	_, err = mgr.Delete(ctx, "conn-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
