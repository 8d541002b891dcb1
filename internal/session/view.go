package session

import (
	"sync"

	"github.com/rookgm/brewtrack/internal/models"
)

// View is reconciled local state of one session
type View struct {
	mu      sync.RWMutex
	version uint64
	orders  []models.OrderWithItems
	byID    map[string]int
}

// NewView creates empty View
func NewView() *View {
	return &View{byID: map[string]int{}}
}

// Apply replaces the state with snap and reports whether anything visible
// changed. Snapshots older than the applied one are ignored.
func (v *View) Apply(snap Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if snap.Version != 0 && snap.Version <= v.version {
		return false
	}
	if snap.Version != 0 {
		v.version = snap.Version
	}

	changed := len(snap.Orders) != len(v.orders) || v.orders == nil
	byID := make(map[string]int, len(snap.Orders))
	for i, o := range snap.Orders {
		byID[o.ID] = i
		if changed {
			continue
		}
		j, ok := v.byID[o.ID]
		if !ok || j != i || !sameOrder(v.orders[j], o) {
			changed = true
		}
	}

	orders := snap.Orders
	if orders == nil {
		orders = []models.OrderWithItems{}
	}
	v.orders = orders
	v.byID = byID
	return changed
}

// Version returns version of the last applied snapshot
func (v *View) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Orders returns current orders in snapshot order
func (v *View) Orders() []models.OrderWithItems {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.OrderWithItems, len(v.orders))
	copy(out, v.orders)
	return out
}

// Order returns order by id
func (v *View) Order(id string) (models.OrderWithItems, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.byID[id]
	if !ok {
		return models.OrderWithItems{}, false
	}
	return v.orders[i], true
}

func sameOrder(a, b models.OrderWithItems) bool {
	if a.ID != b.ID || a.Code != b.Code || a.Status != b.Status ||
		a.Total != b.Total || a.Note != b.Note || a.PickupTime != b.PickupTime {
		return false
	}
	if len(a.Items) != len(b.Items) || len(a.Events) != len(b.Events) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].ID != b.Items[i].ID || a.Items[i].Status != b.Items[i].Status {
			return false
		}
	}
	if len(a.Events) > 0 && a.Events[0].ID != b.Events[0].ID {
		return false
	}
	return true
}
