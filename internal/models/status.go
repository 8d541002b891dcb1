package models

import "fmt"

// OrderStatus is a state of an order.
//
// requested -> preparing -> completed, requested|preparing -> canceled.
// completed and canceled are terminal.
type OrderStatus string

// order status
const (
	OrderStatusRequested OrderStatus = "requested"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// ItemStatus is a state of an order item.
//
// requested -> in_progress -> done, requested|in_progress -> canceled.
// done and canceled are terminal.
type ItemStatus string

// order item status
const (
	ItemStatusRequested  ItemStatus = "requested"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusDone       ItemStatus = "done"
	ItemStatusCanceled   ItemStatus = "canceled"
)

// OrderStatuses lists order statuses in flow order
var OrderStatuses = []OrderStatus{
	OrderStatusRequested,
	OrderStatusPreparing,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

// ItemStatuses lists item statuses in flow order
var ItemStatuses = []ItemStatus{
	ItemStatusRequested,
	ItemStatusInProgress,
	ItemStatusDone,
	ItemStatusCanceled,
}

// allowedOrderTransitions defines valid order status transitions.
// Key is current status, value is the set of statuses it can move to.
var allowedOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusRequested: {OrderStatusPreparing, OrderStatusCanceled},
	OrderStatusPreparing: {OrderStatusCompleted, OrderStatusCanceled},
}

var allowedItemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusRequested:  {ItemStatusInProgress, ItemStatusCanceled},
	ItemStatusInProgress: {ItemStatusDone, ItemStatusCanceled},
}

// Valid reports whether s is a member of the order status set
func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// CanTransitionTo reports whether s -> next is a legal transition
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range allowedOrderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a member of the item status set
func (s ItemStatus) Valid() bool {
	for _, st := range ItemStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusDone || s == ItemStatusCanceled
}

// CanTransitionTo reports whether s -> next is a legal transition
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, st := range allowedItemTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw value to OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: order status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ParseItemStatus converts raw value to ItemStatus
func ParseItemStatus(raw string) (ItemStatus, error) {
	s := ItemStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: item status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}
