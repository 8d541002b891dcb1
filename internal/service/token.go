package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rookgm/brewtrack/internal/models"
)

type TokenService interface {
	CreateToken(payload *models.TokenPayload) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// SessionService issues anonymous customer tokens
type SessionService struct {
	ts TokenService
}

// NewSessionService creates new SessionService instance
func NewSessionService(ts TokenService) *SessionService {
	return &SessionService{ts: ts}
}

// SignIn issues customer token for display name. Every call mints a fresh customer token.
func (ss *SessionService) SignIn(name string) (string, *models.TokenPayload, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, models.ErrInvalidCustomer
	}

	payload := &models.TokenPayload{
		Subject:      uuid.NewString(),
		Role:         models.RoleCustomer,
		CustomerName: name,
	}
	tok, err := ss.ts.CreateToken(payload)
	if err != nil {
		return "", nil, fmt.Errorf("create token: %w", err)
	}
	return tok, payload, nil
}

// IssueStaff issues staff token, used by operators
func (ss *SessionService) IssueStaff(subject string) (string, error) {
	if subject == "" {
		subject = uuid.NewString()
	}
	return ss.ts.CreateToken(&models.TokenPayload{
		Subject: subject,
		Role:    models.RoleStaff,
	})
}
