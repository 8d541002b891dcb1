package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/brewtrack/internal/models"
)

// DefaultTokenTTL is token lifetime used when none is given
const DefaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims are JWT claims carrying resolved viewer identity
type Claims struct {
	jwt.RegisteredClaims
	Role         models.Role `json:"role"`
	CustomerName string      `json:"name,omitempty"`
}

// AuthToken creates and verifies HS256 tokens
type AuthToken struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte, ttl time.Duration) *AuthToken {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthToken{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

// CreateToken creates signed token for payload
func (at *AuthToken) CreateToken(payload *models.TokenPayload) (string, error) {
	if payload == nil || payload.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if payload.Role != models.RoleCustomer && payload.Role != models.RoleStaff {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, payload.Role)
	}

	now := at.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
		Role:         payload.Role,
		CustomerName: payload.CustomerName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(at.key)
}

// VerifyToken checks token signature and expiry and returns its payload
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &models.TokenPayload{
		Subject:      claims.Subject,
		Role:         claims.Role,
		CustomerName: claims.CustomerName,
	}, nil
}

// PeekPayload reads token payload without checking the signature.
// Clients use it to learn their own role and name, servers must use VerifyToken.
func PeekPayload(tokenString string) (*models.TokenPayload, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &models.TokenPayload{
		Subject:      claims.Subject,
		Role:         claims.Role,
		CustomerName: claims.CustomerName,
	}, nil
}
