package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/repository/memory"
	"github.com/rookgm/brewtrack/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func change(orderID, customer string) models.Change {
	return models.Change{Table: models.TableOrders, Op: models.OpUpdate, OrderID: orderID, CustomerName: customer}
}

func receive(t *testing.T, ch <-chan models.Change) (models.Change, bool) {
	t.Helper()
	select {
	case c, ok := <-ch:
		return c, ok
	case <-time.After(time.Second):
		t.Fatal("no change received")
	}
	return models.Change{}, false
}

func assertQuiet(t *testing.T, ch <-chan models.Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_ScopeFiltering(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	ctx := context.Background()

	mina, err := hub.Subscribe(ctx, models.CustomerScope("Mina"))
	require.NoError(t, err)
	one, err := hub.Subscribe(ctx, models.OrderScope("o-2"))
	require.NoError(t, err)
	staff, err := hub.Subscribe(ctx, models.StaffScope())
	require.NoError(t, err)

	hub.Publish(change("o-1", "Mina"))

	c, ok := receive(t, mina.Changes())
	require.True(t, ok)
	assert.Equal(t, "o-1", c.OrderID)
	_, ok = receive(t, staff.Changes())
	require.True(t, ok)
	assertQuiet(t, one.Changes())

	hub.Publish(change("o-2", "Joon"))
	_, ok = receive(t, one.Changes())
	require.True(t, ok)
	assertQuiet(t, mina.Changes())
}

func TestHub_Coalesces(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	sub, err := hub.Subscribe(context.Background(), models.StaffScope())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		hub.Publish(change("o-1", "Mina"))
	}
	_, ok := receive(t, sub.Changes())
	require.True(t, ok)
	assertQuiet(t, sub.Changes())
}

func TestHub_SubscriptionClose(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	a, err := hub.Subscribe(ctx, models.StaffScope())
	require.NoError(t, err)
	b, err := hub.Subscribe(context.Background(), models.StaffScope())
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers())

	cancel()
	_, ok := receive(t, a.Changes())
	assert.False(t, ok)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 0, hub.Subscribers())

	// publishing after close must not panic
	hub.Publish(change("o-1", "Mina"))

	hub.Close()
	late, err := hub.Subscribe(context.Background(), models.StaffScope())
	require.NoError(t, err)
	_, ok = receive(t, late.Changes())
	assert.False(t, ok)
	require.NoError(t, late.Close())
}

func TestHub_Tap(t *testing.T) {
	hub := NewHub(nil)
	changes, release := hub.Tap(8)

	for i := 0; i < 3; i++ {
		hub.Publish(change("o-1", "Mina"))
	}
	for i := 0; i < 3; i++ {
		_, ok := receive(t, changes)
		require.True(t, ok)
	}

	release()
	release()
	_, ok := receive(t, changes)
	assert.False(t, ok)
	hub.Close()
}

func TestHub_InvalidScope(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	_, err := hub.Subscribe(context.Background(), models.Scope{Kind: models.ScopeOrder})
	assert.ErrorIs(t, err, models.ErrInvalidScope)
}

func TestHub_DrivesSessionFromStoreWrites(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	store := memory.New(memory.WithPublisher(hub))
	ctx := context.Background()

	snaps := make(chan session.Snapshot, 16)
	s, err := session.Start(ctx, store, models.CustomerScope("Mina"), func(snap session.Snapshot) {
		snaps <- snap
	}, session.WithFeed(hub), session.WithPollInterval(time.Hour))
	require.NoError(t, err)
	defer s.Close()

	first := <-snaps
	assert.Empty(t, first.Orders)

	order := &models.Order{ID: "o-1", Code: "26101512345", Status: models.OrderStatusRequested, Subtotal: 100, Total: 100, CustomerName: "Mina"}
	require.NoError(t, store.CreateOrder(ctx, order, []models.OrderItem{{ID: "i-1", Name: "Tea", Quantity: 1, Price: 100, Status: models.ItemStatusRequested}}))

	for {
		select {
		case snap := <-snaps:
			assert.Equal(t, session.TriggerPush, snap.Trigger)
			if len(snap.Orders) == 1 {
				assert.Equal(t, "o-1", snap.Orders[0].ID)
				return
			}
		case <-time.After(time.Second):
			t.Fatal("push did not trigger a refetch")
		}
	}
}

func TestParseChange(t *testing.T) {
	c, err := ParseChange(`{"table":"order_items","op":"UPDATE","order_id":"o-1","customer_name":"Mina"}`)
	require.NoError(t, err)
	assert.Equal(t, models.Change{Table: models.TableOrderItems, Op: models.OpUpdate, OrderID: "o-1", CustomerName: "Mina"}, c)

	_, err = ParseChange(`{"order_id":"o-1"}`)
	assert.Error(t, err)

	_, err = ParseChange(`not json`)
	assert.Error(t, err)
}
