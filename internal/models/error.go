package models

import (
	"errors"
	"fmt"
)

var (
	ErrConflictData      = errors.New("data conflicts with existing data")
	ErrDataNotFound      = errors.New("data not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrOrderNotTerminal  = errors.New("order is not completed or canceled")
	ErrEmptyOrder        = errors.New("order has no billable items")
	ErrInvalidItem       = errors.New("invalid order item")
	ErrInvalidDiscount   = errors.New("invalid discount")
	ErrInvalidCustomer   = errors.New("invalid customer name")
	ErrInvalidScope      = errors.New("invalid scope")
	ErrItemOrderMismatch = errors.New("item does not belong to order")
	ErrInvalidOrderCode  = errors.New("invalid order code")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternalError     = errors.New("internal error")
	ErrPartialTransition = errors.New("transition partially applied")
)

// PartialTransitionError reports that the order row was written but a later
// cascade or event write failed, on a store without transactions.
type PartialTransitionError struct {
	OrderID string
	Stage   string
	Err     error
}

func (e *PartialTransitionError) Error() string {
	return fmt.Sprintf("order %s: %s failed after status update: %v", e.OrderID, e.Stage, e.Err)
}

func (e *PartialTransitionError) Unwrap() []error {
	return []error{ErrPartialTransition, e.Err}
}
