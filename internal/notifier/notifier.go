// Package notifier raises one notification per status transition observed
// between consecutive snapshots.
package notifier

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/brewtrack/internal/models"
)

// Notifier diffs snapshots against last-known statuses
type Notifier struct {
	mu        sync.Mutex
	primed    bool
	orders    map[string]models.OrderStatus
	items     map[string]models.ItemStatus
	itemLevel bool
	now       func() time.Time
}

// Option configures Notifier
type Option func(*Notifier)

// WithItemLevel also reports item status changes, for single order views
func WithItemLevel(on bool) Option {
	return func(n *Notifier) {
		n.itemLevel = on
	}
}

// WithClock sets time source
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

// New creates Notifier with empty baseline
func New(opts ...Option) *Notifier {
	n := &Notifier{
		orders: map[string]models.OrderStatus{},
		items:  map[string]models.ItemStatus{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Seed sets the baseline from locally cached records, so the first snapshot
// reports transitions that happened while the viewer was away.
func (n *Notifier) Seed(records []models.LocalOrderRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, r := range records {
		n.orders[r.ID] = r.Status
	}
	if len(records) > 0 {
		n.primed = true
	}
}

// Observe compares snapshot with the baseline, updates the baseline and
// returns raised notifications. The first snapshot only primes the baseline.
func (n *Notifier) Observe(orders []models.OrderWithItems) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var raised []models.Notification
	for _, o := range orders {
		prev, known := n.orders[o.ID]
		n.orders[o.ID] = o.Status
		if n.primed && known && prev != o.Status {
			raised = append(raised, n.notification(
				fmt.Sprintf("%s order status changed: %q", o.DisplayCode(), o.Status),
				models.ToneSuccess, models.EntityOrder, o.ID, "", string(o.Status),
			))
		}

		for _, it := range o.Items {
			prevItem, knownItem := n.items[it.ID]
			n.items[it.ID] = it.Status
			if !n.itemLevel || !n.primed || !knownItem || prevItem == it.Status {
				continue
			}
			raised = append(raised, n.notification(
				fmt.Sprintf("%s status changed: %s", it.Name, it.Status),
				models.ToneWarning, models.EntityItem, o.ID, it.ID, string(it.Status),
			))
		}
	}
	n.primed = true

	return raised
}

// Known returns last-known status of order
func (n *Notifier) Known(orderID string) (models.OrderStatus, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := n.orders[orderID]
	return st, ok
}

func (n *Notifier) notification(msg string, tone models.Tone, kind models.EntityKind, orderID, itemID, status string) models.Notification {
	return models.Notification{
		ID:       uuid.NewString(),
		Message:  msg,
		Tone:     tone,
		Kind:     kind,
		OrderID:  orderID,
		ItemID:   itemID,
		Status:   status,
		RaisedAt: n.now(),
	}
}
