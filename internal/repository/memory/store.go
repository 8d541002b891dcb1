// Package memory implements an in-process order store used when no database
// is configured and by tests. It has no transactions: every write is applied
// on its own, like the hosted store the engine was designed against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
)

// Store operation names passed to FailHook
const (
	OpCreateOrder       = "create_order"
	OpGetOrder          = "get_order"
	OpUpdateOrderStatus = "update_order_status"
	OpUpdateItemStatus  = "update_item_status"
	OpAppendEvent       = "append_event"
	OpDeleteOrder       = "delete_order"
	OpSnapshot          = "snapshot"
)

// RecentEventsLimit is how many events a snapshot embeds per order
const RecentEventsLimit = 50

// Publisher receives a change for every applied write
type Publisher interface {
	Publish(c models.Change)
}

// Store keeps orders, items and events in memory
type Store struct {
	mu          sync.RWMutex
	orders      map[string]*models.Order
	codes       map[string]string
	items       map[string][]*models.OrderItem
	itemOrder   map[string]string
	events      []models.StatusEvent
	nextEventID int64

	pub Publisher
	now func() time.Time

	// FailHook, when set, is consulted before every write and snapshot.
	// A non-nil result fails the operation without applying it.
	FailHook func(op string) error
}

// Option configures Store
type Option func(*Store)

// WithPublisher sets change publisher
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.pub = p
	}
}

// WithClock sets time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates empty Store
func New(opts ...Option) *Store {
	s := &Store{
		orders:    map[string]*models.Order{},
		codes:     map[string]string{},
		items:     map[string][]*models.OrderItem{},
		itemOrder: map[string]string{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn directly, the store has no transactions
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Atomic reports false, writes inside WithinTx are independent
func (s *Store) Atomic() bool {
	return false
}

func (s *Store) fail(op string) error {
	if s.FailHook == nil {
		return nil
	}
	return s.FailHook(op)
}

func (s *Store) publish(table models.ChangeTable, op models.ChangeOp, order *models.Order) {
	if s.pub == nil || order == nil {
		return
	}
	s.pub.Publish(models.Change{
		Table:        table,
		Op:           op,
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
	})
}

// CreateOrder inserts order and its items
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if err := s.fail(OpCreateOrder); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.orders[order.ID]; ok {
		s.mu.Unlock()
		return models.ErrConflictData
	}
	if _, ok := s.codes[order.Code]; ok && order.Code != "" {
		s.mu.Unlock()
		return models.ErrConflictData
	}

	order.CreatedAt = s.now()
	o := *order
	s.orders[o.ID] = &o
	if o.Code != "" {
		s.codes[o.Code] = o.ID
	}
	stored := make([]*models.OrderItem, 0, len(items))
	for _, item := range items {
		it := item
		it.OrderID = o.ID
		stored = append(stored, &it)
		s.itemOrder[it.ID] = o.ID
	}
	s.items[o.ID] = stored
	s.mu.Unlock()

	s.publish(models.TableOrders, models.OpInsert, &o)
	if len(items) > 0 {
		s.publish(models.TableOrderItems, models.OpInsert, &o)
	}
	return nil
}

// GetOrder returns order by id
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := s.fail(OpGetOrder); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	order := *o
	return &order, nil
}

// GetOrderByCode returns order by human-readable code
func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	s.mu.RLock()
	id, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return s.GetOrder(ctx, id)
}

// ListItems returns order items in placement order
func (s *Store) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.OrderItem, 0, len(s.items[orderID]))
	for _, it := range s.items[orderID] {
		items = append(items, *it)
	}
	return items, nil
}

// GetItem returns order item by id
func (s *Store) GetItem(ctx context.Context, id string) (*models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.findItem(id)
	if it == nil {
		return nil, models.ErrDataNotFound
	}
	item := *it
	return &item, nil
}

func (s *Store) findItem(id string) *models.OrderItem {
	orderID, ok := s.itemOrder[id]
	if !ok {
		return nil
	}
	for _, it := range s.items[orderID] {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if err := s.fail(OpUpdateOrderStatus); err != nil {
		return err
	}

	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return models.ErrDataNotFound
	}
	o.Status = status
	order := *o
	s.mu.Unlock()

	s.publish(models.TableOrders, models.OpUpdate, &order)
	return nil
}

// UpdateItemStatus updates order item status
func (s *Store) UpdateItemStatus(ctx context.Context, id string, status models.ItemStatus) error {
	if err := s.fail(OpUpdateItemStatus); err != nil {
		return err
	}

	s.mu.Lock()
	it := s.findItem(id)
	if it == nil {
		s.mu.Unlock()
		return models.ErrDataNotFound
	}
	it.Status = status
	var order models.Order
	if o, ok := s.orders[it.OrderID]; ok {
		order = *o
	}
	s.mu.Unlock()

	s.publish(models.TableOrderItems, models.OpUpdate, &order)
	return nil
}

// AppendEvent appends event, filling its id and creation time
func (s *Store) AppendEvent(ctx context.Context, ev *models.StatusEvent) error {
	if err := s.fail(OpAppendEvent); err != nil {
		return err
	}

	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	ev.CreatedAt = s.now()
	s.events = append(s.events, *ev)
	order := models.Order{ID: ev.OrderID}
	if o, ok := s.orders[ev.OrderID]; ok {
		order = *o
	}
	s.mu.Unlock()

	s.publish(models.TableStatusEvents, models.OpInsert, &order)
	return nil
}

// ListEvents returns order events, newest first
func (s *Store) ListEvents(ctx context.Context, orderID string) ([]models.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orderEvents(orderID, 0), nil
}

// orderEvents returns up to limit events newest first, limit <= 0 means all
func (s *Store) orderEvents(orderID string, limit int) []models.StatusEvent {
	events := []models.StatusEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].OrderID != orderID {
			continue
		}
		events = append(events, s.events[i])
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events
}

// EventCount returns total number of events in the log
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// DeleteOrder deletes order and its items. Events are kept.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	if err := s.fail(OpDeleteOrder); err != nil {
		return err
	}

	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return models.ErrDataNotFound
	}
	order := *o
	delete(s.orders, id)
	delete(s.codes, o.Code)
	for _, it := range s.items[id] {
		delete(s.itemOrder, it.ID)
	}
	delete(s.items, id)
	s.mu.Unlock()

	s.publish(models.TableOrders, models.OpDelete, &order)
	return nil
}

// Snapshot returns orders matching scope with embedded items and recent events
func (s *Store) Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := s.fail(OpSnapshot); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []models.OrderWithItems{}
	for _, o := range s.orders {
		if !scope.Includes(*o) {
			continue
		}
		ow := models.OrderWithItems{
			Order:  *o,
			Items:  make([]models.OrderItem, 0, len(s.items[o.ID])),
			Events: s.orderEvents(o.ID, RecentEventsLimit),
		}
		for _, it := range s.items[o.ID] {
			ow.Items = append(ow.Items, *it)
		}
		orders = append(orders, ow)
	}

	// staff board reads oldest first, customers see their latest order on top
	asc := scope.Kind == models.ScopeStaff
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].CreatedAt, orders[j].CreatedAt
		if a.Equal(b) {
			if asc {
				return orders[i].ID < orders[j].ID
			}
			return orders[i].ID > orders[j].ID
		}
		if asc {
			return a.Before(b)
		}
		return a.After(b)
	})
	return orders, nil
}
