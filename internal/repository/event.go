package repository

import (
	"context"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/repository/postgres"
)

const (
	eventColumns = `id, order_id, order_item_id, entity_type, from_status, to_status, created_at`

	insertEventQuery = `
						INSERT INTO status_events (order_id, order_item_id, entity_type, from_status, to_status)
						VALUES ($1, $2, $3, $4, $5)
						RETURNING id, created_at
`
	selectEventsByOrderQuery = `
						SELECT ` + eventColumns + ` FROM status_events
						WHERE order_id = $1
						ORDER BY created_at DESC, id DESC
`
	selectRecentEventsQuery = `
						SELECT ` + eventColumns + ` FROM (
							SELECT *, row_number() OVER (PARTITION BY order_id ORDER BY created_at DESC, id DESC) AS rn
							FROM status_events
							WHERE order_id = ANY($1)
						) e
						WHERE rn <= $2
						ORDER BY order_id, created_at DESC, id DESC
`
)

// EventRepository implements the append-only status event log
type EventRepository struct {
	db *postgres.DB
}

// NewEventRepository creates new EventRepository instance
func NewEventRepository(db *postgres.DB) *EventRepository {
	return &EventRepository{db: db}
}

// AppendEvent appends event, filling its id and creation time
func (er *EventRepository) AppendEvent(ctx context.Context, ev *models.StatusEvent) error {
	q, _ := querier(ctx, er.db)
	return q.QueryRow(ctx, insertEventQuery, ev.OrderID, ev.ItemID, string(ev.Kind), ev.FromStatus, ev.ToStatus).
		Scan(&ev.ID, &ev.CreatedAt)
}

// ListEvents returns order events, newest first
func (er *EventRepository) ListEvents(ctx context.Context, orderID string) ([]models.StatusEvent, error) {
	q, _ := querier(ctx, er.db)
	rows, err := q.Query(ctx, selectEventsByOrderQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.StatusEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func recentEvents(ctx context.Context, q postgres.Querier, orderIDs []string, limit int) ([]models.StatusEvent, error) {
	rows, err := q.Query(ctx, selectRecentEventsQuery, orderIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.StatusEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.StatusEvent, error) {
	var (
		ev   models.StatusEvent
		kind string
	)
	err := row.Scan(&ev.ID, &ev.OrderID, &ev.ItemID, &kind, &ev.FromStatus, &ev.ToStatus, &ev.CreatedAt)
	if err != nil {
		return models.StatusEvent{}, err
	}
	ev.Kind = models.EntityKind(kind)
	return ev, nil
}
