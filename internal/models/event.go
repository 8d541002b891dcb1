package models

import (
	"time"
)

// EntityKind discriminates what a status event is about
type EntityKind string

const (
	EntityOrder EntityKind = "order"
	EntityItem  EntityKind = "item"
)

// StatusEvent is an immutable record of one status transition.
// ID grows with insertion order.
type StatusEvent struct {
	ID         int64      `json:"id"`
	OrderID    string     `json:"order_id"`
	ItemID     *string    `json:"order_item_id,omitempty"`
	Kind       EntityKind `json:"entity_type"`
	FromStatus *string    `json:"from_status,omitempty"`
	ToStatus   string     `json:"to_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewOrderEvent creates order-level event
func NewOrderEvent(orderID string, from, to OrderStatus) StatusEvent {
	f := string(from)
	return StatusEvent{
		OrderID:    orderID,
		Kind:       EntityOrder,
		FromStatus: &f,
		ToStatus:   string(to),
	}
}

// NewItemEvent creates item-level event
func NewItemEvent(orderID, itemID string, from, to ItemStatus) StatusEvent {
	f := string(from)
	id := itemID
	return StatusEvent{
		OrderID:    orderID,
		ItemID:     &id,
		Kind:       EntityItem,
		FromStatus: &f,
		ToStatus:   string(to),
	}
}
