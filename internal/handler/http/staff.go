package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/brewtrack/internal/models"
)

type TransitionService interface {
	TransitionOrder(ctx context.Context, orderID string, to models.OrderStatus) (*models.TransitionResult, error)
	TransitionItem(ctx context.Context, itemID string, to models.ItemStatus, orderID string) (*models.TransitionResult, error)
}

type EventService interface {
	// Events returns order events, newest first
	Events(ctx context.Context, orderID string) ([]models.StatusEvent, error)
}

// StaffHandler represents HTTP handler for staff board requests
type StaffHandler struct {
	orders OrderService
	coord  TransitionService
	events EventService
}

// NewStaffHandler creates new StaffHandler instance
func NewStaffHandler(orders OrderService, coord TransitionService, events EventService) *StaffHandler {
	return &StaffHandler{
		orders: orders,
		coord:  coord,
		events: events,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListOrders returns every order, oldest first
// 200 — успешная обработка запроса.
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := sh.orders.Snapshot(r.Context(), models.StaffScope())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

// GetOrder returns order by id
// 200 — успешная обработка запроса.
// 404 — заказ не найден.
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := sh.orders.Get(r.Context(), models.OrderScope(chi.URLParam(r, "id")))
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

// GetOrderByCode returns order by human-readable code
// 200 — успешная обработка запроса.
// 404 — заказ не найден.
// 422 — неверный формат номера заказа.
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) GetOrderByCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := sh.orders.GetByCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidOrderCode):
				http.Error(w, "invalid order code", http.StatusUnprocessableEntity)
			case errors.Is(err, models.ErrDataNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

// ListEvents returns order status events, newest first
// 200 — успешная обработка запроса.
// 204 — событий нет.
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) ListEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := sh.events.Events(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				w.WriteHeader(http.StatusNoContent)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// transitionError writes response for a failed coordinator call
func transitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrDataNotFound), errors.Is(err, models.ErrItemOrderMismatch):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrPartialTransition):
		http.Error(w, "transition partially applied", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// UpdateOrderStatus moves order to a new status, cascading onto its items
// 200 — статус изменён;
// 400 — неверный формат запроса или статуса;
// 404 — заказ не найден;
// 409 — недопустимый переход;
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		to, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := sh.coord.TransitionOrder(r.Context(), chi.URLParam(r, "id"), to)
		if err != nil {
			transitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// UpdateItemStatus moves a single item to a new status
// 200 — статус изменён;
// 400 — неверный формат запроса или статуса;
// 404 — позиция не найдена в заказе;
// 409 — недопустимый переход;
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) UpdateItemStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		to, err := models.ParseItemStatus(req.Status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := sh.coord.TransitionItem(r.Context(), chi.URLParam(r, "itemID"), to, chi.URLParam(r, "id"))
		if err != nil {
			transitionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DeleteOrder removes completed or canceled order
// 204 — заказ удалён;
// 404 — заказ не найден;
// 409 — заказ ещё не завершён;
// 500 — внутренняя ошибка сервера.
func (sh *StaffHandler) DeleteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := sh.orders.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, models.ErrOrderNotTerminal):
				http.Error(w, "order is not completed or canceled", http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
