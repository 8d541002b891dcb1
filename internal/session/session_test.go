package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, n int32) ([]models.OrderWithItems, error)
}

func (f *fakeFetcher) Snapshot(ctx context.Context, _ models.Scope) ([]models.OrderWithItems, error) {
	n := f.calls.Add(1)
	if f.fn == nil {
		return []models.OrderWithItems{}, nil
	}
	return f.fn(ctx, n)
}

type fakeSub struct {
	ch     chan models.Change
	closed atomic.Bool
}

func (s *fakeSub) Changes() <-chan models.Change { return s.ch }

func (s *fakeSub) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeFeed struct {
	sub *fakeSub
	err error
}

func (f *fakeFeed) Subscribe(context.Context, models.Scope) (Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) add(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func (r *recorder) count() int {
	return len(r.all())
}

func TestSession_InitialFetchAndPoll(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, 5*time.Millisecond)

	snaps := rec.all()
	assert.Equal(t, TriggerStart, snaps[0].Trigger)
	assert.Equal(t, TriggerPoll, snaps[1].Trigger)
	for i, snap := range snaps {
		assert.Equal(t, uint64(i+1), snap.Version)
	}
}

func TestSession_PushTriggersRefetch(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}
	feed := &fakeFeed{sub: &fakeSub{ch: make(chan models.Change, 1)}}

	s, err := Start(context.Background(), f, models.CustomerScope("Mina"), rec.add,
		WithPollInterval(time.Hour), WithFeed(feed))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	feed.sub.ch <- models.Change{Table: models.TableOrders, Op: models.OpUpdate, OrderID: "o-1", CustomerName: "Mina"}

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, TriggerPush, rec.all()[1].Trigger)

	s.Refresh()
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestSession_FetchErrorsAreSwallowed(t *testing.T) {
	f := &fakeFetcher{fn: func(_ context.Context, n int32) ([]models.OrderWithItems, error) {
		if n <= 3 {
			return nil, errors.New("store unavailable")
		}
		return []models.OrderWithItems{{Order: models.Order{ID: "o-1"}}}, nil
	}}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Active())

	first := rec.all()[0]
	assert.Equal(t, uint64(1), first.Version)
	require.Len(t, first.Orders, 1)
	assert.Equal(t, "o-1", first.Orders[0].ID)
}

func TestSession_TeardownDiscardsInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := &fakeFetcher{fn: func(_ context.Context, n int32) ([]models.OrderWithItems, error) {
		if n == 1 {
			close(started)
		}
		// ignores cancellation, like a hung request would
		<-release
		return []models.OrderWithItems{{Order: models.Order{ID: "late"}}}, nil
	}}
	rec := &recorder{}
	feed := &fakeFeed{sub: &fakeSub{ch: make(chan models.Change)}}

	s, err := Start(context.Background(), f, models.OrderScope("late"), rec.add, WithFeed(feed))
	require.NoError(t, err)

	<-started
	require.NoError(t, s.Close())
	assert.False(t, s.Active())
	assert.True(t, feed.sub.closed.Load())

	close(release)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not exit")
	}
	assert.Zero(t, rec.count())
}

func TestSession_CloseFromCallback(t *testing.T) {
	f := &fakeFetcher{}
	var s *Session
	var calls atomic.Int32
	ready := make(chan struct{})

	s, err := Start(context.Background(), f, models.StaffScope(), func(Snapshot) {
		<-ready
		calls.Add(1)
		_ = s.Close()
	}, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	close(ready)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not exit")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.NoError(t, s.Close())
}

func TestSession_SubscribeFailureKeepsPolling(t *testing.T) {
	f := &fakeFetcher{}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add,
		WithPollInterval(5*time.Millisecond), WithFeed(&fakeFeed{err: errors.New("no broker")}))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSession_ParentContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Start(ctx, &fakeFetcher{}, models.StaffScope(), nil, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not exit")
	}
}

func TestSession_FetchTimeout(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, n int32) ([]models.OrderWithItems, error) {
		if n == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []models.OrderWithItems{}, nil
	}}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add,
		WithPollInterval(5*time.Millisecond), WithFetchTimeout(10*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, TriggerPoll, rec.all()[0].Trigger)
}

func TestSession_HungFetchKeepsPolling(t *testing.T) {
	hang := make(chan struct{})
	t.Cleanup(func() { close(hang) })

	f := &fakeFetcher{fn: func(_ context.Context, n int32) ([]models.OrderWithItems, error) {
		if n == 2 {
			// never answers and ignores cancellation
			<-hang
		}
		return []models.OrderWithItems{}, nil
	}}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add, WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return f.calls.Load() >= 6 && rec.count() >= 4 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Active())
}

func TestSession_DropsStaleSnapshot(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(_ context.Context, n int32) ([]models.OrderWithItems, error) {
		if n == 1 {
			<-release
			return []models.OrderWithItems{{Order: models.Order{ID: "stale"}}}, nil
		}
		return []models.OrderWithItems{{Order: models.Order{ID: "fresh"}}}, nil
	}}
	rec := &recorder{}

	s, err := Start(context.Background(), f, models.StaffScope(), rec.add, WithPollInterval(time.Hour))
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.Refresh()
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	require.Never(t, func() bool { return rec.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	snaps := rec.all()
	assert.Equal(t, TriggerPush, snaps[0].Trigger)
	assert.Equal(t, uint64(1), snaps[0].Version)
	assert.Equal(t, "fresh", snaps[0].Orders[0].ID)
}

func TestStart_InvalidScope(t *testing.T) {
	_, err := Start(context.Background(), &fakeFetcher{}, models.Scope{Kind: models.ScopeCustomer}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidScope)
}
