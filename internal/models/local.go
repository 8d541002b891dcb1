package models

import "time"

// LocalOrderRecord is a minimal projection of Order kept on the customer device
type LocalOrderRecord struct {
	ID        string      `json:"id"`
	Code      string      `json:"order_code,omitempty"`
	Status    OrderStatus `json:"status"`
	Total     int64       `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewLocalOrderRecord projects order to local record
func NewLocalOrderRecord(o Order) LocalOrderRecord {
	return LocalOrderRecord{
		ID:        o.ID,
		Code:      o.Code,
		Status:    o.Status,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}
