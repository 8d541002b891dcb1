package service

import (
	"context"

	"github.com/rookgm/brewtrack/internal/models"
)

// EventRepository is interface for reading the status event log
type EventRepository interface {
	// ListEvents returns order events, newest first
	ListEvents(ctx context.Context, orderID string) ([]models.StatusEvent, error)
}

// EventService implements event log reads
type EventService struct {
	repo EventRepository
}

// NewEventService creates new EventService instance
func NewEventService(repo EventRepository) *EventService {
	return &EventService{repo: repo}
}

// Events returns order events, newest first. Events outlive their order.
func (es *EventService) Events(ctx context.Context, orderID string) ([]models.StatusEvent, error) {
	if orderID == "" {
		return nil, models.ErrDataNotFound
	}
	events, err := es.repo.ListEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, models.ErrDataNotFound
	}
	return events, nil
}
