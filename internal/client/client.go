package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
)

// default request timeout
const defaultTimeout = 5 * time.Second

// Client talks to brewtrack server HTTP API
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient creates new Client instance. token may be empty until SignIn.
func NewClient(baseURL, token string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// Token returns current bearer token
func (c *Client) Token() string {
	return c.token
}

// APIError is a non-success response. It unwraps to the matching models error.
type APIError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// conflicts maps 409 and 422 responses of one endpoint to models errors
type conflicts struct {
	conflict    error
	unprocessed error
}

func newAPIError(resp *http.Response, cf conflicts) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.err = models.ErrInvalidStatus
	case http.StatusUnauthorized:
		apiErr.err = models.ErrUnauthorized
	case http.StatusForbidden:
		apiErr.err = models.ErrForbidden
	case http.StatusNotFound:
		apiErr.err = models.ErrDataNotFound
	case http.StatusConflict:
		apiErr.err = cf.conflict
	case http.StatusUnprocessableEntity:
		apiErr.err = cf.unprocessed
	default:
		if strings.Contains(apiErr.Message, models.ErrPartialTransition.Error()) {
			apiErr.err = models.ErrPartialTransition
		} else {
			apiErr.err = models.ErrInternalError
		}
	}

	return apiErr
}

// do sends request with optional JSON body and decodes JSON response into out.
// It returns false when server responded 204.
func (c *Client) do(ctx context.Context, method string, in, out any, cf conflicts, elem ...string) (bool, error) {
	u, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return false, err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return false, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return false, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if out == nil {
			return true, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return true, nil
	case http.StatusNoContent:
		return false, nil
	default:
		return false, newAPIError(resp, cf)
	}
}

type signInResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name"`
}

// SignIn requests a customer token and keeps it for later calls
// 200 — токен выдан;
// 400 — пустое имя.
func (c *Client) SignIn(ctx context.Context, name string) (string, error) {
	// POST /api/session
	var resp signInResponse
	_, err := c.do(ctx, http.MethodPost, map[string]string{"name": name}, &resp, conflicts{}, "api", "session")
	if err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// Place places a new order
// 201 — заказ принят;
// 409 — не удалось выдать номер заказа;
// 422 — заказ не прошёл проверку.
func (c *Client) Place(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderWithItems, error) {
	// POST /api/orders
	var order models.OrderWithItems
	_, err := c.do(ctx, http.MethodPost, req, &order, conflicts{
		conflict:    models.ErrConflictData,
		unprocessed: models.ErrEmptyOrder,
	}, "api", "orders")
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Snapshot fetches orders visible through scope. A missing order yields an empty snapshot.
func (c *Client) Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var orders []models.OrderWithItems
	switch scope.Kind {
	case models.ScopeStaff:
		// GET /api/staff/orders
		if _, err := c.do(ctx, http.MethodGet, nil, &orders, conflicts{}, "api", "staff", "orders"); err != nil {
			return nil, err
		}
	case models.ScopeCustomer:
		// GET /api/orders, the server resolves the customer from the token
		if _, err := c.do(ctx, http.MethodGet, nil, &orders, conflicts{}, "api", "orders"); err != nil {
			return nil, err
		}
	case models.ScopeOrder:
		// GET /api/orders/{id}
		var order models.OrderWithItems
		_, err := c.do(ctx, http.MethodGet, nil, &order, conflicts{}, "api", "orders", scope.OrderID)
		if err != nil {
			if isNotFound(err) {
				return []models.OrderWithItems{}, nil
			}
			return nil, err
		}
		orders = append(orders, order)
	}

	if orders == nil {
		orders = []models.OrderWithItems{}
	}
	return orders, nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Events returns order status events, newest first
// 200 — успешная обработка запроса;
// 204 — событий нет.
func (c *Client) Events(ctx context.Context, orderID string) ([]models.StatusEvent, error) {
	// GET /api/staff/orders/{id}/events
	var events []models.StatusEvent
	if _, err := c.do(ctx, http.MethodGet, nil, &events, conflicts{}, "api", "staff", "orders", orderID, "events"); err != nil {
		return nil, err
	}
	return events, nil
}

// GetByCode returns order by its human-readable code
func (c *Client) GetByCode(ctx context.Context, code string) (*models.OrderWithItems, error) {
	// GET /api/staff/orders/code/{code}
	var order models.OrderWithItems
	_, err := c.do(ctx, http.MethodGet, nil, &order, conflicts{
		unprocessed: models.ErrInvalidOrderCode,
	}, "api", "staff", "orders", "code", code)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

// TransitionOrder moves order to status
// 200 — статус изменён;
// 409 — недопустимый переход.
func (c *Client) TransitionOrder(ctx context.Context, orderID string, to models.OrderStatus) (*models.TransitionResult, error) {
	// PATCH /api/staff/orders/{id}/status
	var res models.TransitionResult
	_, err := c.do(ctx, http.MethodPatch, statusRequest{Status: string(to)}, &res, conflicts{
		conflict: models.ErrIllegalTransition,
	}, "api", "staff", "orders", orderID, "status")
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// TransitionItem moves a single item of order to status
func (c *Client) TransitionItem(ctx context.Context, itemID string, to models.ItemStatus, orderID string) (*models.TransitionResult, error) {
	// PATCH /api/staff/orders/{id}/items/{itemID}/status
	var res models.TransitionResult
	_, err := c.do(ctx, http.MethodPatch, statusRequest{Status: string(to)}, &res, conflicts{
		conflict: models.ErrIllegalTransition,
	}, "api", "staff", "orders", orderID, "items", itemID, "status")
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes completed or canceled order
// 204 — заказ удалён;
// 409 — заказ ещё не завершён.
func (c *Client) Delete(ctx context.Context, orderID string) error {
	// DELETE /api/staff/orders/{id}
	_, err := c.do(ctx, http.MethodDelete, nil, nil, conflicts{
		conflict: models.ErrOrderNotTerminal,
	}, "api", "staff", "orders", orderID)
	return err
}
