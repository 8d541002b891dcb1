package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phedde/luhn-algorithm"
	"github.com/rookgm/brewtrack/internal/logger"
	"github.com/rookgm/brewtrack/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// codeAttempts is how many times placement retries on order code collision
const codeAttempts = 3

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts order and its items
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	// GetOrder returns order by id
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// GetOrderByCode returns order by human-readable code
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	// DeleteOrder deletes order with its items
	DeleteOrder(ctx context.Context, id string) error
	// Snapshot returns orders matching scope with items and recent events
	Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error)
}

// OrderService implements order placement and reads
type OrderService struct {
	repo    OrderRepository
	newCode func(now time.Time) string
	now     func() time.Time
	tracer  trace.Tracer
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{
		repo:    repo,
		newCode: NewOrderCode,
		now:     time.Now,
		tracer:  otel.Tracer("brewtrack/order"),
	}
}

// NewOrderCode returns numeric order code: yymmdd, four random digits and a Luhn check digit
func NewOrderCode(now time.Time) string {
	base := int64(0)
	for _, c := range now.Format("060102") {
		base = base*10 + int64(c-'0')
	}
	base = base*10000 + int64(rand.IntN(10000))

	for d := int64(0); d < 10; d++ {
		if num := base*10 + d; luhn.IsValid(num) {
			return fmt.Sprintf("%011d", num)
		}
	}
	// unreachable, exactly one check digit fits
	return fmt.Sprintf("%011d", base*10)
}

// ValidOrderCode reports whether code is numeric and passes Luhn check
func ValidOrderCode(code string) bool {
	num, err := strconv.ParseInt(code, 10, 64)
	if err != nil || num <= 0 {
		return false
	}
	return luhn.IsValid(num)
}

// Place validates the request and stores a new order with its items.
// Placement is not a transition and writes no status event.
func (os *OrderService) Place(ctx context.Context, req *models.PlaceOrderRequest) (*models.OrderWithItems, error) {
	ctx, span := os.tracer.Start(ctx, "PlaceOrder")
	defer span.End()

	order, items, err := buildOrder(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		order.ID = uuid.NewString()
		order.Code = os.newCode(os.now())
		for i := range items {
			items[i].ID = uuid.NewString()
			items[i].OrderID = order.ID
		}

		err = os.repo.CreateOrder(ctx, order, items)
		if err == nil {
			break
		}
		if errors.Is(err, models.ErrConflictData) && attempt < codeAttempts {
			logger.Log.Debug("order code collision, retry", zap.String("code", order.Code), zap.Int("attempt", attempt))
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.code", order.Code),
		attribute.Int("order.items", len(items)),
	)
	logger.Log.Debug("order placed", zap.String("id", order.ID), zap.String("code", order.Code), zap.Int64("total", order.Total))

	return &models.OrderWithItems{Order: *order, Items: items}, nil
}

// per-line limits, keep order totals far from int64 overflow
const (
	maxItemQuantity = 1000
	maxItemPrice    = 100_000_000
	maxOrderItems   = 100
)

func buildOrder(req *models.PlaceOrderRequest) (*models.Order, []models.OrderItem, error) {
	if req == nil {
		return nil, nil, models.ErrEmptyOrder
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, nil, models.ErrInvalidCustomer
	}
	if len(req.Items) == 0 {
		return nil, nil, models.ErrEmptyOrder
	}
	if len(req.Items) > maxOrderItems {
		return nil, nil, fmt.Errorf("%w: %d items, at most %d", models.ErrInvalidItem, len(req.Items), maxOrderItems)
	}

	var subtotal int64
	items := make([]models.OrderItem, 0, len(req.Items))
	for i, pi := range req.Items {
		itemName := strings.TrimSpace(pi.Name)
		switch {
		case itemName == "":
			return nil, nil, fmt.Errorf("%w: item %d has no name", models.ErrInvalidItem, i)
		case pi.Quantity < 1 || pi.Quantity > maxItemQuantity:
			return nil, nil, fmt.Errorf("%w: item %d quantity %d", models.ErrInvalidItem, i, pi.Quantity)
		case pi.Price < 0 || pi.Price > maxItemPrice:
			return nil, nil, fmt.Errorf("%w: item %d price %d", models.ErrInvalidItem, i, pi.Price)
		case pi.Temperature != "" && pi.Temperature != models.TemperatureHot && pi.Temperature != models.TemperatureIce:
			return nil, nil, fmt.Errorf("%w: item %d temperature %q", models.ErrInvalidItem, i, pi.Temperature)
		}

		subtotal += int64(pi.Quantity) * pi.Price
		items = append(items, models.OrderItem{
			MenuItemID: pi.MenuItemID,
			Name:       models.ItemName(itemName, pi.Temperature),
			Quantity:   pi.Quantity,
			Price:      pi.Price,
			Status:     models.ItemStatusRequested,
			Recipe:     pi.Recipe,
		})
	}

	if subtotal <= 0 {
		return nil, nil, models.ErrEmptyOrder
	}
	// a fully discounted order has nothing to pay for
	if req.Discount < 0 || req.Discount >= subtotal {
		return nil, nil, fmt.Errorf("%w: %d of %d", models.ErrInvalidDiscount, req.Discount, subtotal)
	}

	order := &models.Order{
		Status:        models.OrderStatusRequested,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Total:         subtotal - req.Discount,
		PickupTime:    req.PickupTime,
		Note:          req.Note,
		CustomerName:  name,
		CustomerToken: req.CustomerToken,
	}
	return order, items, nil
}

// Snapshot returns orders visible through scope
func (os *OrderService) Snapshot(ctx context.Context, scope models.Scope) ([]models.OrderWithItems, error) {
	return os.repo.Snapshot(ctx, scope)
}

// Get returns single order visible through scope
func (os *OrderService) Get(ctx context.Context, scope models.Scope) (*models.OrderWithItems, error) {
	if scope.Kind != models.ScopeOrder {
		return nil, models.ErrInvalidScope
	}
	orders, err := os.repo.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, models.ErrDataNotFound
	}
	return &orders[0], nil
}

// GetByCode returns order by its human-readable code
func (os *OrderService) GetByCode(ctx context.Context, code string) (*models.OrderWithItems, error) {
	// check code using Luhn algorithm
	if !ValidOrderCode(code) {
		return nil, models.ErrInvalidOrderCode
	}

	order, err := os.repo.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return os.Get(ctx, models.OrderScope(order.ID))
}

// Delete removes a completed or canceled order. Its events stay in the log.
func (os *OrderService) Delete(ctx context.Context, orderID string) error {
	order, err := os.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.Terminal() {
		return models.ErrOrderNotTerminal
	}
	if err := os.repo.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	logger.Log.Info("order deleted", zap.String("id", orderID), zap.String("code", order.Code))
	return nil
}
