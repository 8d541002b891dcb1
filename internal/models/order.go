package models

import (
	"fmt"
	"time"
)

// Order is order entity
type Order struct {
	ID            string      `json:"id"`
	Code          string      `json:"order_code"`
	Status        OrderStatus `json:"status"`
	Subtotal      int64       `json:"subtotal"`
	Discount      int64       `json:"discount"`
	Total         int64       `json:"total"`
	PickupTime    string      `json:"pickup_time,omitempty"`
	Note          string      `json:"note,omitempty"`
	CustomerName  string      `json:"customer_name"`
	CustomerToken string      `json:"customer_token,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// DisplayCode returns human-readable order code, falling back to id
func (o Order) DisplayCode() string {
	if o.Code != "" {
		return o.Code
	}
	return o.ID
}

// OrderItem is one line of an order. Name, price and recipe are captured at order time.
type OrderItem struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"order_id"`
	MenuItemID string     `json:"menu_item_id,omitempty"`
	Name       string     `json:"name"`
	Quantity   int        `json:"qty"`
	Price      int64      `json:"price"`
	Status     ItemStatus `json:"status"`
	Recipe     *string    `json:"recipe,omitempty"`
}

// OrderWithItems is order aggregate built at the query boundary
type OrderWithItems struct {
	Order
	Items  []OrderItem   `json:"items"`
	Events []StatusEvent `json:"events,omitempty"`
}

// Temperature is a drink variant appended to the item name
type Temperature string

const (
	TemperatureHot Temperature = "HOT"
	TemperatureIce Temperature = "ICE"
)

// ItemName returns item name with temperature suffix, e.g. "Latte (HOT)"
func ItemName(name string, temp Temperature) string {
	if temp == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, temp)
}

// PlaceItem is a requested line of a new order
type PlaceItem struct {
	MenuItemID  string      `json:"menu_item_id,omitempty"`
	Name        string      `json:"name"`
	Temperature Temperature `json:"temperature,omitempty"`
	Quantity    int         `json:"qty"`
	Price       int64       `json:"price"`
	Recipe      *string     `json:"recipe,omitempty"`
}

// PlaceOrderRequest is a customer checkout
type PlaceOrderRequest struct {
	CustomerName  string      `json:"customer_name"`
	CustomerToken string      `json:"-"`
	PickupTime    string      `json:"pickup_time,omitempty"`
	Note          string      `json:"note,omitempty"`
	Discount      int64       `json:"discount,omitempty"`
	Items         []PlaceItem `json:"items"`
}

// ItemChange describes one cascaded item transition
type ItemChange struct {
	ItemID string     `json:"item_id"`
	From   ItemStatus `json:"from"`
	To     ItemStatus `json:"to"`
}

// TransitionResult is outcome of a coordinator call
type TransitionResult struct {
	OrderID  string        `json:"order_id"`
	ItemID   string        `json:"item_id,omitempty"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Cascaded []ItemChange  `json:"cascaded,omitempty"`
	Events   []StatusEvent `json:"events"`
}
