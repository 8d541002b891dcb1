package localcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.LocalOrderRecord {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return []models.LocalOrderRecord{
		{ID: "o-2", Code: "26101500019", Status: models.OrderStatusPreparing, Total: 4000, CreatedAt: at.Add(time.Minute)},
		{ID: "o-1", Code: "26101512345", Status: models.OrderStatusCompleted, Total: 1500, CreatedAt: at},
	}
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "Mina"), mr
}

func TestCache_RoundTrip(t *testing.T) {
	redisCache, _ := newRedisCache(t)
	caches := map[string]Cache{
		"file":  NewFileCache(filepath.Join(t.TempDir(), "nested", "orders.json")),
		"redis": redisCache,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.Empty(t, c.Load(ctx))

			want := sampleRecords()
			require.NoError(t, c.Save(ctx, want))
			assert.Equal(t, want, c.Load(ctx))

			// full replace, not a merge
			require.NoError(t, c.Save(ctx, want[:1]))
			assert.Equal(t, want[:1], c.Load(ctx))

			require.NoError(t, c.Save(ctx, nil))
			got := c.Load(ctx)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestFileCache_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got := NewFileCache(path).Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisCache_Corrupt(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set(keyPrefix+"Mina", `[{"id":`))

	got := c.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReconcile(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	records := sampleRecords()

	orders := []models.OrderWithItems{
		{Order: models.Order{ID: "o-4", Code: "C4", Status: models.OrderStatusRequested, Total: 10, CreatedAt: at.Add(3 * time.Minute)}},
		{Order: models.Order{ID: "o-2", Code: "26101500019", Status: models.OrderStatusCompleted, Total: 4000, CreatedAt: at.Add(time.Minute)}},
		{Order: models.Order{ID: "o-3", Code: "C3", Status: models.OrderStatusRequested, Total: 20, CreatedAt: at.Add(2 * time.Minute)}},
	}

	got := Reconcile(records, orders)
	require.Len(t, got, 4)
	assert.Equal(t, "o-2", got[0].ID)
	assert.Equal(t, models.OrderStatusCompleted, got[0].Status)
	assert.Equal(t, "o-1", got[1].ID, "records missing from the snapshot are kept")
	assert.Equal(t, "o-3", got[2].ID)
	assert.Equal(t, "o-4", got[3].ID)

	// input is not modified
	assert.Equal(t, models.OrderStatusPreparing, records[0].Status)
}
