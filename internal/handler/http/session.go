package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rookgm/brewtrack/internal/models"
)

type SessionService interface {
	SignIn(name string) (string, *models.TokenPayload, error)
}

// SessionHandler represents HTTP handler for anonymous customer sign-in
type SessionHandler struct {
	svc SessionService
}

// NewSessionHandler creates new SessionHandler instance
func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type signInRequest struct {
	Name string `json:"name"`
}

type signInResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name"`
}

// SignIn issues a customer token and sets it as cookie
// 200 — токен выдан;
// 400 — неверный формат запроса или пустое имя;
// 500 — внутренняя ошибка сервера.
func (sh *SessionHandler) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		token, payload, err := sh.svc.SignIn(req.Name)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidCustomer):
				http.Error(w, "name is required", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     AuthCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, signInResponse{
			Token: token,
			Role:  payload.Role,
			Name:  payload.CustomerName,
		})
	}
}
