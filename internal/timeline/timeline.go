// Package timeline renders an order's status event log as text
package timeline

import (
	"fmt"
	"io"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Render writes one line per event in the given order:
//
//	<time>  order|item (<name>)  <from> -> <to>
func Render(w io.Writer, events []models.StatusEvent, items []models.OrderItem, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "no events")
		return err
	}

	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}

	for _, ev := range events {
		from := "-"
		if ev.FromStatus != nil {
			from = *ev.FromStatus
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %s -> %s\n",
			ev.CreatedAt.In(loc).Format(timeLayout), subject(ev, names), from, ev.ToStatus); err != nil {
			return err
		}
	}
	return nil
}

func subject(ev models.StatusEvent, names map[string]string) string {
	if ev.Kind == models.EntityOrder {
		return "order"
	}
	if ev.ItemID == nil {
		return "item"
	}
	if name, ok := names[*ev.ItemID]; ok {
		return fmt.Sprintf("item (%s)", name)
	}
	return fmt.Sprintf("item (%s)", *ev.ItemID)
}
