package notifier

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTray_Expires(t *testing.T) {
	var expired atomic.Int32
	tray := NewTray(
		WithLifetime(10*time.Millisecond, 5*time.Millisecond),
		WithOnExpire(func(models.Notification) { expired.Add(1) }),
	)
	defer tray.Close()

	tray.Push(models.Notification{ID: "a"}, models.Notification{ID: "b"})
	assert.Len(t, tray.Active(), 2)

	require.Eventually(t, func() bool { return len(tray.Active()) == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return expired.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTray_Dismiss(t *testing.T) {
	var expired atomic.Int32
	tray := NewTray(
		WithLifetime(30*time.Millisecond, 0),
		WithOnExpire(func(models.Notification) { expired.Add(1) }),
	)
	defer tray.Close()

	tray.Push(models.Notification{ID: "a"}, models.Notification{ID: "b"})
	assert.True(t, tray.Dismiss("a"))
	assert.False(t, tray.Dismiss("a"))
	assert.False(t, tray.Dismiss("missing"))

	active := tray.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)

	require.Eventually(t, func() bool { return len(tray.Active()) == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), expired.Load())

	// dismissing after expiry is a no-op
	assert.False(t, tray.Dismiss("b"))
}

func TestTray_DefaultLifetime(t *testing.T) {
	tray := NewTray()
	assert.Equal(t, 3800*time.Millisecond, tray.ttl)
	tray.Close()
}

func TestTray_Close(t *testing.T) {
	var expired atomic.Int32
	tray := NewTray(
		WithLifetime(10*time.Millisecond, 0),
		WithOnExpire(func(models.Notification) { expired.Add(1) }),
	)

	tray.Push(models.Notification{ID: "a"})
	tray.Close()
	tray.Push(models.Notification{ID: "b"})

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, tray.Active())
	assert.Zero(t, expired.Load())
}
