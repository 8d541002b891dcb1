package models

import "fmt"

// ScopeKind is the filter a synchronization session is built for
type ScopeKind string

const (
	ScopeCustomer ScopeKind = "by-customer-name"
	ScopeOrder    ScopeKind = "by-order-id"
	ScopeStaff    ScopeKind = "unscoped-staff-view"
)

// Scope filters both snapshot queries and change notifications.
// An order scope may also carry CustomerName to restrict the order to its owner.
type Scope struct {
	Kind         ScopeKind
	CustomerName string
	OrderID      string
}

// CustomerScope returns scope for orders of one customer
func CustomerScope(name string) Scope {
	return Scope{Kind: ScopeCustomer, CustomerName: name}
}

// OrderScope returns scope for a single order
func OrderScope(orderID string) Scope {
	return Scope{Kind: ScopeOrder, OrderID: orderID}
}

// StaffScope returns unfiltered scope
func StaffScope() Scope {
	return Scope{Kind: ScopeStaff}
}

// Validate checks that the scope carries the value its kind needs
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeCustomer:
		if s.CustomerName == "" {
			return fmt.Errorf("%w: customer name is empty", ErrInvalidScope)
		}
	case ScopeOrder:
		if s.OrderID == "" {
			return fmt.Errorf("%w: order id is empty", ErrInvalidScope)
		}
	case ScopeStaff:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScope, s.Kind)
	}
	return nil
}

// Matches reports whether change c is visible through the scope
func (s Scope) Matches(c Change) bool {
	switch s.Kind {
	case ScopeStaff:
		return true
	case ScopeCustomer:
		return c.CustomerName == s.CustomerName
	case ScopeOrder:
		return c.OrderID == s.OrderID
	}
	return false
}

// Includes reports whether order o belongs to the scope
func (s Scope) Includes(o Order) bool {
	switch s.Kind {
	case ScopeStaff:
		return true
	case ScopeCustomer:
		return o.CustomerName == s.CustomerName
	case ScopeOrder:
		return o.ID == s.OrderID && (s.CustomerName == "" || o.CustomerName == s.CustomerName)
	}
	return false
}

// String returns short form used in logs
func (s Scope) String() string {
	switch s.Kind {
	case ScopeCustomer:
		return fmt.Sprintf("%s:%s", s.Kind, s.CustomerName)
	case ScopeOrder:
		return fmt.Sprintf("%s:%s", s.Kind, s.OrderID)
	}
	return string(s.Kind)
}
