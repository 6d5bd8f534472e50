package services

import (
	"context"
	"fmt"
	"log/slog"

	"costs/internal/core"
)

// CostStore is the cost store surface used by the service.
type CostStore interface {
	AddCost(ctx context.Context, c core.NewCost) (core.CostItem, error)
	QueryByMonth(ctx context.Context, year, month int) ([]core.CostItem, error)
}

// Publisher announces stored costs to other systems.
type Publisher interface {
	PublishCostRecorded(ctx context.Context, item core.CostItem) error
	Close() error
}

// CostService validates user input, stores costs and announces them.
type CostService struct {
	store     CostStore
	publisher Publisher
}

// NewCostService creates a service; publisher may be nil.
func NewCostService(store CostStore, publisher Publisher) *CostService {
	return &CostService{
		store:     store,
		publisher: publisher,
	}
}

// RecordCost validates c, stores it and publishes a cost.recorded event.
// A failed publish is logged; the cost is already stored.
func (s *CostService) RecordCost(ctx context.Context, c core.NewCost) (core.CostItem, error) {
	if err := c.Validate(); err != nil {
		return core.CostItem{}, err
	}

	item, err := s.store.AddCost(ctx, c)
	if err != nil {
		return core.CostItem{}, fmt.Errorf("save cost: %w", err)
	}

	if err := s.publish(ctx, item); err != nil {
		slog.ErrorContext(ctx, "Failed to publish cost recorded message",
			"id", item.ID, "error", err)
	}

	return item, nil
}

// ListCosts returns the costs stored for (year, month).
func (s *CostService) ListCosts(ctx context.Context, year, month int) ([]core.CostItem, error) {
	if !core.ValidMonth(month) {
		return nil, fmt.Errorf("%w: month %d out of range", core.ErrInvalidInput, month)
	}
	return s.store.QueryByMonth(ctx, year, month)
}

func (s *CostService) publish(ctx context.Context, item core.CostItem) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping cost recorded message")
		return nil
	}
	return s.publisher.PublishCostRecorded(ctx, item)
}

// Close closes the publisher. The store belongs to the caller.
func (s *CostService) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
