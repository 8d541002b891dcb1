package models

import "time"

// Tone is a presentation hint for a notification
type Tone string

const (
	ToneDefault Tone = "default"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
)

// Notification is a transient user-visible message about an observed transition
type Notification struct {
	ID       string     `json:"id"`
	Message  string     `json:"message"`
	Tone     Tone       `json:"tone"`
	Kind     EntityKind `json:"entity_type"`
	OrderID  string     `json:"order_id"`
	ItemID   string     `json:"order_item_id,omitempty"`
	Status   string     `json:"status"`
	RaisedAt time.Time  `json:"raised_at"`
}
