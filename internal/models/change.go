package models

// ChangeTable is a table that emits change notifications
type ChangeTable string

const (
	TableOrders       ChangeTable = "orders"
	TableOrderItems   ChangeTable = "order_items"
	TableStatusEvents ChangeTable = "status_events"
)

// ChangeOp is a row-level operation
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Change is a row-level change notification. It only signals that something
// changed; viewers re-fetch the snapshot to get the data.
type Change struct {
	Table        ChangeTable `json:"table"`
	Op           ChangeOp    `json:"op"`
	OrderID      string      `json:"order_id"`
	CustomerName string      `json:"customer_name"`
}
