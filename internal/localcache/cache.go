// Package localcache keeps a customer's own orders on the device, so a
// viewer has its orders before the first fetch and a baseline for change
// detection across restarts.
package localcache

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rookgm/brewtrack/internal/models"
)

// Cache persists the full list of local order records
type Cache interface {
	// Load returns saved records, empty when nothing or garbage is stored
	Load(ctx context.Context) []models.LocalOrderRecord
	// Save replaces saved records
	Save(ctx context.Context, records []models.LocalOrderRecord) error
}

func decode(data []byte) []models.LocalOrderRecord {
	var records []models.LocalOrderRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return []models.LocalOrderRecord{}
	}
	if records == nil {
		return []models.LocalOrderRecord{}
	}
	return records
}

func encode(records []models.LocalOrderRecord) ([]byte, error) {
	if records == nil {
		records = []models.LocalOrderRecord{}
	}
	return json.Marshal(records)
}

// Reconcile updates records from a fetched snapshot. Known orders take the
// server's status, unseen ones are appended oldest first, and records missing
// from the snapshot are kept.
func Reconcile(records []models.LocalOrderRecord, orders []models.OrderWithItems) []models.LocalOrderRecord {
	out := make([]models.LocalOrderRecord, len(records))
	copy(out, records)

	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.ID] = i
	}

	var added []models.LocalOrderRecord
	for _, o := range orders {
		rec := models.NewLocalOrderRecord(o.Order)
		if i, ok := index[o.ID]; ok {
			out[i] = rec
			continue
		}
		index[o.ID] = -1
		added = append(added, rec)
	}
	sort.SliceStable(added, func(i, j int) bool {
		return added[i].CreatedAt.Before(added[j].CreatedAt)
	})

	return append(out, added...)
}
