package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/brewtrack/internal/models"
)

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks . OrderService,TransitionService,EventService,SessionService,TokenService

type OrderService interface {
	Place(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderWithItems, error)
	Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error)
	Get(ctx context.Context, scope models.Scope) (*models.OrderWithItems, error)
	GetByCode(ctx context.Context, code string) (*models.OrderWithItems, error)
	Delete(ctx context.Context, orderID string) error
}

// OrderHandler represents HTTP handler for customer order requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return
	}
}

// PlaceOrder places a new order
// 201 — заказ принят;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 409 — не удалось выдать номер заказа;
// 422 — заказ не прошёл проверку;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) PlaceOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req models.PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// customers order under their own name, staff may order for anyone
		if payload.Role != models.RoleStaff {
			req.CustomerName = payload.CustomerName
			req.CustomerToken = payload.Subject
		}

		order, err := oh.svc.Place(r.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrEmptyOrder),
				errors.Is(err, models.ErrInvalidItem),
				errors.Is(err, models.ErrInvalidDiscount),
				errors.Is(err, models.ErrInvalidCustomer):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, models.ErrConflictData):
				http.Error(w, "order code conflict, retry", http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

// ListOrders returns orders visible to the viewer
// 200 — успешная обработка запроса.
// 204 — нет данных для ответа.
// 401 — пользователь не авторизован.
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := oh.svc.Snapshot(r.Context(), viewerScope(payload))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidScope):
				http.Error(w, "bad request", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// GetOrder returns order with items and recent events
// 200 — успешная обработка запроса.
// 401 — пользователь не авторизован.
// 404 — заказ не найден.
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID := chi.URLParam(r, "id")
		order, err := oh.svc.Get(r.Context(), orderScope(payload, orderID))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound), errors.Is(err, models.ErrInvalidScope):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}
