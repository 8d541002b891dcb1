package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rookgm/brewtrack/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// partial failure stages
const (
	stageOrderEvent = "order event"
	stageCascade    = "item cascade"
	stageItemEvent  = "item event"
)

// TransitionStore is the storage the coordinator writes through
type TransitionStore interface {
	// WithinTx runs fn in one transaction when the store supports it
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Atomic reports whether WithinTx commits all writes together
	Atomic() bool

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetItem(ctx context.Context, id string) (*models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	UpdateItemStatus(ctx context.Context, id string, status models.ItemStatus) error
	AppendEvent(ctx context.Context, ev *models.StatusEvent) error
}

// Coordinator is the only writer of order and item status
type Coordinator struct {
	store    TransitionStore
	strict   bool
	accurate bool
	log      *zap.Logger
	tracer   trace.Tracer
}

// CoordinatorOption configures Coordinator
type CoordinatorOption func(*Coordinator)

// WithStrictTransitions rejects transitions outside the status flow
func WithStrictTransitions(strict bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.strict = strict
	}
}

// WithAccurateCascadeLog logs each cascaded item's real prior status
// instead of the fixed pair implied by the order transition
func WithAccurateCascadeLog(accurate bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.accurate = accurate
	}
}

// WithCoordinatorLogger sets logger
func WithCoordinatorLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator creates new Coordinator. Strict transitions are on by default.
func NewCoordinator(store TransitionStore, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:  store,
		strict: true,
		log:    zap.NewNop(),
		tracer: otel.Tracer("brewtrack/coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cascade describes item changes forced by an order transition
type cascade struct {
	target    models.ItemStatus
	fixedFrom models.ItemStatus
	applies   func(models.ItemStatus) bool
}

func notTerminal(s models.ItemStatus) bool {
	return !s.Terminal()
}

func isRequested(s models.ItemStatus) bool {
	return s == models.ItemStatusRequested
}

var cascades = map[models.OrderStatus]cascade{
	models.OrderStatusPreparing: {
		target:    models.ItemStatusInProgress,
		fixedFrom: models.ItemStatusRequested,
		applies:   isRequested,
	},
	models.OrderStatusCompleted: {
		target:    models.ItemStatusDone,
		fixedFrom: models.ItemStatusInProgress,
		applies:   notTerminal,
	},
	models.OrderStatusCanceled: {
		target:    models.ItemStatusCanceled,
		fixedFrom: models.ItemStatusInProgress,
		applies:   notTerminal,
	},
}

// TransitionOrder sets order status, cascades onto its items and appends
// one order event plus one event per cascaded item.
func (c *Coordinator) TransitionOrder(ctx context.Context, orderID string, to models.OrderStatus) (*models.TransitionResult, error) {
	ctx, span := c.tracer.Start(ctx, "TransitionOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.to", string(to)),
	))
	defer span.End()

	if !to.Valid() {
		err := fmt.Errorf("%w: order status %q", models.ErrInvalidStatus, to)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var result *models.TransitionResult
	err := c.store.WithinTx(ctx, func(ctx context.Context) error {
		result = nil

		order, err := c.store.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		from := order.Status
		if c.strict && !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: order %s -> %s", models.ErrIllegalTransition, from, to)
		}

		items, err := c.store.ListItems(ctx, orderID)
		if err != nil {
			return err
		}

		if err := c.store.UpdateOrderStatus(ctx, orderID, to); err != nil {
			return err
		}

		res := &models.TransitionResult{
			OrderID: orderID,
			From:    string(from),
			To:      string(to),
		}

		ev := models.NewOrderEvent(orderID, from, to)
		if err := c.store.AppendEvent(ctx, &ev); err != nil {
			return c.partial(orderID, stageOrderEvent, err)
		}
		res.Events = append(res.Events, ev)

		cs, ok := cascades[to]
		if !ok {
			result = res
			return nil
		}
		for _, item := range items {
			if !cs.applies(item.Status) {
				continue
			}
			if err := c.store.UpdateItemStatus(ctx, item.ID, cs.target); err != nil {
				return c.partial(orderID, stageCascade, err)
			}
			logged := cs.fixedFrom
			if c.accurate {
				logged = item.Status
			}
			iev := models.NewItemEvent(orderID, item.ID, logged, cs.target)
			if err := c.store.AppendEvent(ctx, &iev); err != nil {
				return c.partial(orderID, stageItemEvent, err)
			}
			res.Cascaded = append(res.Cascaded, models.ItemChange{ItemID: item.ID, From: item.Status, To: cs.target})
			res.Events = append(res.Events, iev)
		}

		result = res
		return nil
	})
	if err != nil {
		c.fail(span, "order transition failed", err, zap.String("order", orderID), zap.String("to", string(to)))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.from", result.From),
		attribute.Int("order.cascaded", len(result.Cascaded)),
	)
	c.log.Info("order status changed",
		zap.String("order", orderID),
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.Int("cascaded", len(result.Cascaded)),
	)
	return result, nil
}

// TransitionItem sets a single item status and appends one event. It never
// touches the parent order. A non-empty orderID must own the item.
func (c *Coordinator) TransitionItem(ctx context.Context, itemID string, to models.ItemStatus, orderID string) (*models.TransitionResult, error) {
	ctx, span := c.tracer.Start(ctx, "TransitionItem", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.String("item.to", string(to)),
	))
	defer span.End()

	if !to.Valid() {
		err := fmt.Errorf("%w: item status %q", models.ErrInvalidStatus, to)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var result *models.TransitionResult
	err := c.store.WithinTx(ctx, func(ctx context.Context) error {
		result = nil

		owner := orderID
		if owner == "" {
			item, err := c.store.GetItem(ctx, itemID)
			if err != nil {
				return err
			}
			owner = item.OrderID
		}
		// lock parent order against a concurrent cascade, the item is read under it
		if _, err := c.store.GetOrder(ctx, owner); err != nil {
			return err
		}
		item, err := c.store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.OrderID != owner {
			return models.ErrItemOrderMismatch
		}

		from := item.Status
		if c.strict && !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: item %s -> %s", models.ErrIllegalTransition, from, to)
		}

		if err := c.store.UpdateItemStatus(ctx, itemID, to); err != nil {
			return err
		}

		ev := models.NewItemEvent(item.OrderID, itemID, from, to)
		if err := c.store.AppendEvent(ctx, &ev); err != nil {
			return c.partial(item.OrderID, stageItemEvent, err)
		}

		result = &models.TransitionResult{
			OrderID: item.OrderID,
			ItemID:  itemID,
			From:    string(from),
			To:      string(to),
			Events:  []models.StatusEvent{ev},
		}
		return nil
	})
	if err != nil {
		c.fail(span, "item transition failed", err, zap.String("item", itemID), zap.String("to", string(to)))
		return nil, err
	}

	c.log.Info("item status changed",
		zap.String("order", result.OrderID),
		zap.String("item", itemID),
		zap.String("from", result.From),
		zap.String("to", result.To),
	)
	return result, nil
}

// partial wraps a failure after the first write. On an atomic store the
// transaction rolls back, so the error is returned as is.
func (c *Coordinator) partial(orderID, stage string, err error) error {
	if c.store.Atomic() {
		return err
	}
	return &models.PartialTransitionError{OrderID: orderID, Stage: stage, Err: err}
}

func (c *Coordinator) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	fields = append(fields, zap.Error(err))
	var pe *models.PartialTransitionError
	switch {
	case errors.As(err, &pe):
		c.log.Error("transition partially applied", append(fields, zap.String("stage", pe.Stage))...)
	case errors.Is(err, models.ErrIllegalTransition), errors.Is(err, models.ErrDataNotFound),
		errors.Is(err, models.ErrItemOrderMismatch):
		c.log.Debug(msg, fields...)
	default:
		c.log.Warn(msg, fields...)
	}
}
