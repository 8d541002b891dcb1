// Package changefeed delivers row-level change signals to synchronization
// sessions. Signals carry no order data; receivers refetch.
package changefeed

import (
	"context"
	"sync"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/session"
	"go.uber.org/zap"
)

// Hub fans changes out to scoped in-process subscribers
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	taps   map[*tap]struct{}
	closed bool
	log    *zap.Logger
}

// NewHub creates new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: map[*subscription]struct{}{},
		taps: map[*tap]struct{}{},
		log:  log,
	}
}

type subscription struct {
	hub   *Hub
	scope models.Scope
	ch    chan models.Change
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) Changes() <-chan models.Change {
	return s.ch
}

func (s *subscription) Close() error {
	s.hub.mu.Lock()
	delete(s.hub.subs, s)
	s.hub.mu.Unlock()
	s.release()
	return nil
}

// release must run after s left the hub map
func (s *subscription) release() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

type tap struct {
	ch   chan models.Change
	once sync.Once
}

// Publish signals every subscriber whose scope matches c. A subscriber that
// already has a pending signal is not signalled again.
func (h *Hub) Publish(c models.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for s := range h.subs {
		if !s.scope.Matches(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	for t := range h.taps {
		select {
		case t.ch <- c:
		default:
			h.log.Warn("change tap is full, dropping change",
				zap.String("table", string(c.Table)), zap.String("order", c.OrderID))
		}
	}
}

// Subscribe opens subscription filtered by scope. It is closed by Close or
// when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, scope models.Scope) (session.Subscription, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s := &subscription{
		hub:   h,
		scope: scope,
		ch:    make(chan models.Change, 1),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.release()
		return s, nil
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

// Tap returns every published change without coalescing, up to buffer
// pending ones. Release stops the tap.
func (h *Hub) Tap(buffer int) (<-chan models.Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	t := &tap{ch: make(chan models.Change, buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(t.ch)
		return t.ch, func() {}
	}
	h.taps[t] = struct{}{}
	h.mu.Unlock()

	release := func() {
		t.once.Do(func() {
			h.mu.Lock()
			_, ok := h.taps[t]
			delete(h.taps, t)
			h.mu.Unlock()
			if ok {
				close(t.ch)
			}
		})
	}
	return t.ch, release
}

// Subscribers returns number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription and tap
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	taps := h.taps
	h.subs = map[*subscription]struct{}{}
	h.taps = map[*tap]struct{}{}
	h.mu.Unlock()

	for s := range subs {
		s.release()
	}
	for t := range taps {
		t.once.Do(func() { close(t.ch) })
	}
}
