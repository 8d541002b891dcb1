package notifier

import (
	"sync"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
)

// default notification lifetime
const (
	DefaultVisible = 3500 * time.Millisecond
	DefaultExit    = 300 * time.Millisecond
)

type entry struct {
	n     models.Notification
	timer *time.Timer
}

// Tray holds raised notifications until they expire or are dismissed
type Tray struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string
	ttl      time.Duration
	onExpire func(models.Notification)
	closed   bool
}

// TrayOption configures Tray
type TrayOption func(*Tray)

// WithLifetime sets visible and exit durations
func WithLifetime(visible, exit time.Duration) TrayOption {
	return func(t *Tray) {
		t.ttl = visible + exit
	}
}

// WithOnExpire sets callback for notifications removed by their timer
func WithOnExpire(fn func(models.Notification)) TrayOption {
	return func(t *Tray) {
		t.onExpire = fn
	}
}

// NewTray creates empty Tray
func NewTray(opts ...TrayOption) *Tray {
	t := &Tray{
		entries: map[string]*entry{},
		ttl:     DefaultVisible + DefaultExit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Push adds notifications, each with its own expiry timer
func (t *Tray) Push(ns ...models.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	for _, n := range ns {
		if _, ok := t.entries[n.ID]; ok {
			continue
		}
		id := n.ID
		e := &entry{n: n}
		e.timer = time.AfterFunc(t.ttl, func() { t.expire(id) })
		t.entries[id] = e
		t.order = append(t.order, id)
	}
}

func (t *Tray) expire(id string) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		t.remove(id)
	}
	onExpire := t.onExpire
	t.mu.Unlock()

	if ok && onExpire != nil {
		onExpire(e.n)
	}
}

// remove must be called with mu held
func (t *Tray) remove(id string) {
	delete(t.entries, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Dismiss removes notification early. Unknown or expired ids are ignored.
func (t *Tray) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	t.remove(id)
	return true
}

// Active returns visible notifications, oldest first
func (t *Tray) Active() []models.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Notification, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id].n)
	}
	return out
}

// Close stops every timer and drops pending notifications
func (t *Tray) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		e.timer.Stop()
	}
	t.entries = map[string]*entry{}
	t.order = nil
	t.closed = true
}
