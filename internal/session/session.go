// Package session keeps one viewer's order state current by combining a
// fixed-interval poll with a push change feed that triggers an immediate refetch.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"go.uber.org/zap"
)

// DefaultPollInterval is the timer-driven refresh period
const DefaultPollInterval = 3 * time.Second

// fetches without an explicit timeout give up after this many intervals
const fetchTimeoutIntervals = 4

// Fetcher returns the current snapshot for a scope
type Fetcher interface {
	Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error)
}

// Subscription delivers change signals until closed
type Subscription interface {
	Changes() <-chan models.Change
	Close() error
}

// Feed opens scoped change subscriptions
type Feed interface {
	Subscribe(ctx context.Context, scope models.Scope) (Subscription, error)
}

// Trigger is what caused a fetch
type Trigger string

const (
	TriggerStart Trigger = "start"
	TriggerPoll  Trigger = "poll"
	TriggerPush  Trigger = "push"
)

// Snapshot is one successfully fetched state
type Snapshot struct {
	Version   uint64
	Trigger   Trigger
	FetchedAt time.Time
	Orders    []models.OrderWithItems
}

// Session is a per-viewer synchronization loop
type Session struct {
	fetcher    Fetcher
	feed       Feed
	scope      models.Scope
	onSnapshot func(Snapshot)

	interval     time.Duration
	fetchTimeout time.Duration
	log          *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sub    Subscription

	active   atomic.Bool
	issued   atomic.Uint64
	applyMu  sync.Mutex
	applying atomic.Bool
	applied  uint64
	version  uint64

	wake chan struct{}
	once sync.Once
	done chan struct{}
}

// Option configures Session
type Option func(*Session)

// WithPollInterval sets poll period
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFeed sets push change feed. Without it the session only polls.
func WithFeed(feed Feed) Option {
	return func(s *Session) {
		s.feed = feed
	}
}

// WithFetchTimeout bounds a single fetch. By default a fetch is bounded by a
// few poll intervals.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithLogger sets logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// Start fetches immediately, then keeps fetching on every poll tick and
// every push signal until Close is called or ctx is done.
func Start(ctx context.Context, fetcher Fetcher, scope models.Scope, onSnapshot func(Snapshot), opts ...Option) (*Session, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		fetcher:    fetcher,
		scope:      scope,
		onSnapshot: onSnapshot,
		interval:   DefaultPollInterval,
		log:        zap.NewNop(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetchTimeout == 0 {
		s.fetchTimeout = fetchTimeoutIntervals * s.interval
	}
	s.log = s.log.With(zap.Stringer("scope", scope))
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.active.Store(true)

	if s.feed != nil {
		sub, err := s.feed.Subscribe(s.ctx, scope)
		if err != nil {
			// polling alone still converges
			s.log.Warn("subscribe to change feed", zap.Error(err))
		} else {
			s.sub = sub
		}
	}

	go s.run()

	return s, nil
}

func (s *Session) run() {
	defer close(s.done)

	s.spawn(TriggerStart)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var changes <-chan models.Change
	if s.sub != nil {
		changes = s.sub.Changes()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.spawn(TriggerPoll)
		case <-s.wake:
			s.spawn(TriggerPush)
		case _, ok := <-changes:
			if !ok {
				s.log.Debug("change feed closed, polling only")
				changes = nil
				continue
			}
			drain(changes)
			s.spawn(TriggerPush)
		}
	}
}

// spawn starts a fetch without waiting for earlier ones, a slow fetch never
// holds back the next tick
func (s *Session) spawn(trigger Trigger) {
	seq := s.issued.Add(1)
	go s.refresh(trigger, seq)
}

// drain drops signals queued behind the one being handled, one refetch covers them
func drain(changes <-chan models.Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) refresh(trigger Trigger, seq uint64) {
	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	defer cancel()

	orders, err := s.fetcher.Snapshot(ctx, s.scope)
	if err != nil {
		if s.active.Load() {
			s.log.Debug("fetch snapshot", zap.String("trigger", string(trigger)), zap.Error(err))
		}
		return
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	if !s.active.Load() {
		return
	}
	// a fetch issued later already landed
	if seq <= s.applied {
		s.log.Debug("drop stale snapshot", zap.String("trigger", string(trigger)), zap.Uint64("seq", seq))
		return
	}
	s.applied = seq
	s.version++
	snap := Snapshot{
		Version:   s.version,
		Trigger:   trigger,
		FetchedAt: time.Now(),
		Orders:    orders,
	}

	s.applying.Store(true)
	defer s.applying.Store(false)
	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
}

// Refresh asks for an out-of-band fetch, like a push signal would
func (s *Session) Refresh() {
	if !s.active.Load() {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Scope returns session scope
func (s *Session) Scope() models.Scope {
	return s.scope
}

// Active reports whether the session was not closed
func (s *Session) Active() bool {
	return s.active.Load()
}

// Done is closed when the refresh loop has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the timer and closes the push subscription. Fetches that
// resolve afterwards are discarded. Safe to call more than once and from
// inside the snapshot callback.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.active.Store(false)
		s.cancel()
		if s.sub != nil {
			err = s.sub.Close()
		}
		// wait out an apply started before teardown, unless called from it
		if !s.applying.Load() {
			s.applyMu.Lock()
			s.applyMu.Unlock()
		}
	})
	return err
}
