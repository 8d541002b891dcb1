package models

// Role is a viewer role resolved from the token
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// TokenPayload is resolved identity injected into handlers
type TokenPayload struct {
	Subject      string `json:"sub"`
	Role         Role   `json:"role"`
	CustomerName string `json:"name,omitempty"`
}
