package service

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoItemRequest() *models.PlaceOrderRequest {
	return &models.PlaceOrderRequest{
		CustomerName: "Mina",
		PickupTime:   "14:30",
		Items: []models.PlaceItem{
			{Name: "Latte", Temperature: models.TemperatureHot, Quantity: 2, Price: 1000},
			{Name: "Scone", Quantity: 1, Price: 2000},
		},
	}
}

func TestOrderService_Place(t *testing.T) {
	store := memory.New()
	svc := NewOrderService(store)

	got, err := svc.Place(context.Background(), twoItemRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(4000), got.Subtotal)
	assert.Equal(t, int64(0), got.Discount)
	assert.Equal(t, int64(4000), got.Total)
	assert.Equal(t, models.OrderStatusRequested, got.Status)
	assert.True(t, ValidOrderCode(got.Code), "code %q", got.Code)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Latte (HOT)", got.Items[0].Name)
	for _, it := range got.Items {
		assert.Equal(t, models.ItemStatusRequested, it.Status)
		assert.Equal(t, got.ID, it.OrderID)
	}

	// placement is not a transition
	assert.Equal(t, 0, store.EventCount())

	orders, err := svc.Snapshot(context.Background(), models.CustomerScope("Mina"))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, got.ID, orders[0].ID)
}

func TestOrderService_PlaceValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     *models.PlaceOrderRequest
		wantErr error
	}{
		{
			name:    "nil_request",
			wantErr: models.ErrEmptyOrder,
		},
		{
			name:    "empty_customer",
			req:     &models.PlaceOrderRequest{CustomerName: "  ", Items: []models.PlaceItem{{Name: "Tea", Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidCustomer,
		},
		{
			name:    "no_items",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina"},
			wantErr: models.ErrEmptyOrder,
		},
		{
			name:    "zero_quantity",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Name: "Tea", Quantity: 0, Price: 100}}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "negative_price",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Name: "Tea", Quantity: 1, Price: -1}}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "unnamed_item",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "unknown_temperature",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Name: "Tea", Temperature: "WARM", Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "free_items_only",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Name: "Water", Quantity: 1, Price: 0}}},
			wantErr: models.ErrEmptyOrder,
		},
		{
			name:    "discount_over_subtotal",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Discount: 101, Items: []models.PlaceItem{{Name: "Tea", Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidDiscount,
		},
		{
			name:    "discount_equals_subtotal",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Discount: 100, Items: []models.PlaceItem{{Name: "Tea", Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidDiscount,
		},
		{
			name:    "quantity_over_limit",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{{Name: "Tea", Quantity: maxItemQuantity + 1, Price: 100}}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name: "overflowing_line_total",
			req: &models.PlaceOrderRequest{CustomerName: "Mina", Items: []models.PlaceItem{
				{Name: "Tea", Quantity: 2, Price: math.MaxInt64/2 + 1},
			}},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "too_many_items",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Items: manyItems(maxOrderItems + 1)},
			wantErr: models.ErrInvalidItem,
		},
		{
			name:    "negative_discount",
			req:     &models.PlaceOrderRequest{CustomerName: "Mina", Discount: -1, Items: []models.PlaceItem{{Name: "Tea", Quantity: 1, Price: 100}}},
			wantErr: models.ErrInvalidDiscount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			svc := NewOrderService(store)

			_, err := svc.Place(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			orders, err := store.Snapshot(context.Background(), models.StaffScope())
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func manyItems(n int) []models.PlaceItem {
	items := make([]models.PlaceItem, n)
	for i := range items {
		items[i] = models.PlaceItem{Name: "Tea", Quantity: 1, Price: 100}
	}
	return items
}

func TestOrderService_PlaceDiscount(t *testing.T) {
	svc := NewOrderService(memory.New())

	req := twoItemRequest()
	req.Discount = 500
	got, err := svc.Place(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), got.Subtotal)
	assert.Equal(t, int64(3500), got.Total)
}

func sequenceCodes(codes ...string) func(time.Time) string {
	i := 0
	return func(time.Time) string {
		c := codes[i%len(codes)]
		i++
		return c
	}
}

func TestOrderService_PlaceRetriesCodeCollision(t *testing.T) {
	store := memory.New()
	svc := NewOrderService(store)

	svc.newCode = sequenceCodes("26101500001")
	_, err := svc.Place(context.Background(), twoItemRequest())
	require.NoError(t, err)

	svc.newCode = sequenceCodes("26101500001", "26101500001", "26101500019")
	got, err := svc.Place(context.Background(), twoItemRequest())
	require.NoError(t, err)
	assert.Equal(t, "26101500019", got.Code)

	svc.newCode = sequenceCodes("26101500001")
	_, err = svc.Place(context.Background(), twoItemRequest())
	assert.ErrorIs(t, err, models.ErrConflictData)
}

func TestNewOrderCode(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		code := NewOrderCode(now)
		assert.Len(t, code, 11)
		assert.True(t, strings.HasPrefix(code, "261015"), code)
		assert.True(t, ValidOrderCode(code), code)
	}

	assert.False(t, ValidOrderCode("abc"))
	assert.False(t, ValidOrderCode(""))
}

func TestOrderService_GetByCode(t *testing.T) {
	store := memory.New()
	svc := NewOrderService(store)

	placed, err := svc.Place(context.Background(), twoItemRequest())
	require.NoError(t, err)

	got, err := svc.GetByCode(context.Background(), placed.Code)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	assert.Len(t, got.Items, 2)

	_, err = svc.GetByCode(context.Background(), "12345")
	assert.ErrorIs(t, err, models.ErrInvalidOrderCode)
}

func TestOrderService_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewOrderService(store)
	coord := NewCoordinator(store)

	placed, err := svc.Place(ctx, twoItemRequest())
	require.NoError(t, err)

	err = svc.Delete(ctx, placed.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotTerminal)

	_, err = coord.TransitionOrder(ctx, placed.ID, models.OrderStatusCanceled)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, placed.ID))

	_, err = svc.Get(ctx, models.OrderScope(placed.ID))
	assert.ErrorIs(t, err, models.ErrDataNotFound)

	// log outlives the order
	events, err := NewEventService(store).Events(ctx, placed.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	err = svc.Delete(ctx, placed.ID)
	assert.ErrorIs(t, err, models.ErrDataNotFound)
}
