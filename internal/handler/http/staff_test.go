package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/brewtrack/internal/handler/http/mocks"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaffHandler_UpdateOrderStatus(t *testing.T) {
	result := &models.TransitionResult{
		OrderID: "o1",
		From:    string(models.OrderStatusRequested),
		To:      string(models.OrderStatusPreparing),
		Cascaded: []models.ItemChange{
			{ItemID: "i1", From: models.ItemStatusRequested, To: models.ItemStatusInProgress},
		},
	}

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockTransitionService
		wantStatusCode int
		wantBody       *models.TransitionResult
	}{
		{
			// 200 — статус изменён;
			name: "valid_request_return_200",
			body: `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), "o1", models.OrderStatusPreparing).Return(result, nil).Times(1)
				return m
			},
			wantStatusCode: http.StatusOK,
			wantBody:       result,
		},
		{
			// 400 — неверный формат запроса;
			name: "bad_request_return_400",
			body: `status=preparing`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return m
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 400 — неизвестный статус;
			name: "unknown_status_return_400",
			body: `{"status":"brewing"}`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				return m
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 404 — заказ не найден;
			name: "not_found_return_404",
			body: `{"status":"preparing"}`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), "o1", models.OrderStatusPreparing).
					Return(nil, fmt.Errorf("get order: %w", models.ErrDataNotFound)).Times(1)
				return m
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 409 — недопустимый переход;
			name: "illegal_transition_return_409",
			body: `{"status":"requested"}`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), "o1", models.OrderStatusRequested).
					Return(nil, models.ErrIllegalTransition).Times(1)
				return m
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			// 500 — переход применён частично.
			name: "partial_transition_return_500",
			body: `{"status":"completed"}`,
			setup: func(t *testing.T) *mocks.MockTransitionService {
				ctrl := gomock.NewController(t)

				m := mocks.NewMockTransitionService(ctrl)
				m.EXPECT().TransitionOrder(gomock.Any(), "o1", models.OrderStatusCompleted).
					Return(nil, &models.PartialTransitionError{OrderID: "o1", Stage: "item cascade", Err: errors.New("boom")}).Times(1)
				return m
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/staff/orders/o1/status", strings.NewReader(tt.body))
			req = withURLParams(req, map[string]string{"id": "o1"})

			w := httptest.NewRecorder()
			handler := NewStaffHandler(nil, tt.setup(t), nil)
			handler.UpdateOrderStatus()(w, req)

			res := w.Result()
			defer res.Body.Close()
			require.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody == nil {
				return
			}
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			var got models.TransitionResult
			require.NoError(t, json.Unmarshal(body, &got))
			if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStaffHandler_UpdateItemStatus(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		svcErr         error
		callTimes      int
		wantStatusCode int
	}{
		{
			// 200 — статус изменён;
			name:           "valid_request_return_200",
			body:           `{"status":"done"}`,
			callTimes:      1,
			wantStatusCode: http.StatusOK,
		},
		{
			// 400 — статус заказа вместо статуса позиции;
			name:           "order_status_return_400",
			body:           `{"status":"completed"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 404 — позиция из другого заказа;
			name:           "mismatch_return_404",
			body:           `{"status":"done"}`,
			svcErr:         models.ErrItemOrderMismatch,
			callTimes:      1,
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 409 — недопустимый переход;
			name:           "illegal_transition_return_409",
			body:           `{"status":"done"}`,
			svcErr:         models.ErrIllegalTransition,
			callTimes:      1,
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockTransitionService(ctrl)
			res := &models.TransitionResult{OrderID: "o1", ItemID: "i1", From: "in_progress", To: "done"}
			if tt.svcErr != nil {
				res = nil
			}
			m.EXPECT().TransitionItem(gomock.Any(), "i1", models.ItemStatusDone, "o1").Return(res, tt.svcErr).Times(tt.callTimes)

			req := httptest.NewRequest(http.MethodPatch, "/api/staff/orders/o1/items/i1/status", strings.NewReader(tt.body))
			req = withURLParams(req, map[string]string{"id": "o1", "itemID": "i1"})

			w := httptest.NewRecorder()
			NewStaffHandler(nil, m, nil).UpdateItemStatus()(w, req)

			resp := w.Result()
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatusCode, resp.StatusCode)
		})
	}
}

func TestStaffHandler_ListEvents(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	events := []models.StatusEvent{
		models.NewOrderEvent("o1", models.OrderStatusRequested, models.OrderStatusPreparing),
	}
	events[0].ID = 1
	events[0].CreatedAt = at

	tests := []struct {
		name           string
		events         []models.StatusEvent
		svcErr         error
		wantStatusCode int
	}{
		{
			// 200 — успешная обработка запроса.
			name:           "valid_request_return_200",
			events:         events,
			wantStatusCode: http.StatusOK,
		},
		{
			// 204 — событий нет.
			name:           "no_events_return_204",
			svcErr:         models.ErrDataNotFound,
			wantStatusCode: http.StatusNoContent,
		},
		{
			// 500 — внутренняя ошибка сервера.
			name:           "internal_error_return_500",
			svcErr:         errors.New("connection reset"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockEventService(ctrl)
			m.EXPECT().Events(gomock.Any(), "o1").Return(tt.events, tt.svcErr).Times(1)

			req := httptest.NewRequest(http.MethodGet, "/api/staff/orders/o1/events", nil)
			req = withURLParams(req, map[string]string{"id": "o1"})

			w := httptest.NewRecorder()
			NewStaffHandler(nil, nil, m).ListEvents()(w, req)

			res := w.Result()
			defer res.Body.Close()
			require.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantStatusCode != http.StatusOK {
				return
			}
			var got []models.StatusEvent
			require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
			if diff := cmp.Diff(tt.events, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStaffHandler_GetOrderByCode(t *testing.T) {
	tests := []struct {
		name           string
		svcErr         error
		wantStatusCode int
	}{
		{name: "valid_request_return_200", wantStatusCode: http.StatusOK},
		{name: "invalid_code_return_422", svcErr: models.ErrInvalidOrderCode, wantStatusCode: http.StatusUnprocessableEntity},
		{name: "not_found_return_404", svcErr: models.ErrDataNotFound, wantStatusCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockOrderService(ctrl)
			var order *models.OrderWithItems
			if tt.svcErr == nil {
				order = &models.OrderWithItems{Order: models.Order{ID: "o1", Code: "26101512340"}}
			}
			m.EXPECT().GetByCode(gomock.Any(), "26101512340").Return(order, tt.svcErr).Times(1)

			req := httptest.NewRequest(http.MethodGet, "/api/staff/orders/code/26101512340", nil)
			req = withURLParams(req, map[string]string{"code": "26101512340"})

			w := httptest.NewRecorder()
			NewStaffHandler(m, nil, nil).GetOrderByCode()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestStaffHandler_DeleteOrder(t *testing.T) {
	tests := []struct {
		name           string
		svcErr         error
		wantStatusCode int
	}{
		{
			// 204 — заказ удалён;
			name:           "terminal_order_return_204",
			wantStatusCode: http.StatusNoContent,
		},
		{
			// 404 — заказ не найден;
			name:           "not_found_return_404",
			svcErr:         models.ErrDataNotFound,
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 409 — заказ ещё не завершён;
			name:           "active_order_return_409",
			svcErr:         models.ErrOrderNotTerminal,
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockOrderService(ctrl)
			m.EXPECT().Delete(gomock.Any(), "o1").Return(tt.svcErr).Times(1)

			req := httptest.NewRequest(http.MethodDelete, "/api/staff/orders/o1", nil)
			req = withURLParams(req, map[string]string{"id": "o1"})

			w := httptest.NewRecorder()
			NewStaffHandler(m, nil, nil).DeleteOrder()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}
