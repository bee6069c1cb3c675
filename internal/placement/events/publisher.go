package events

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/pkg/logger"
	"github.com/rackslot/rackslot-backend/pkg/messaging"
)

// ServiceName is the event source and queue prefix of this service.
const ServiceName = "placement-service"

// PlacementEventPublisher publishes placement-related events. Publishing is
// best effort: commits have already happened, so failures are only logged.
// A nil publisher is valid and publishes nothing.
type PlacementEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewPlacementEventPublisher creates a publisher on the placement exchange
func NewPlacementEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PlacementEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePlacementEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps any EventPublisher, e.g. a test double.
func New(publisher messaging.EventPublisher, log *logger.Logger) *PlacementEventPublisher {
	return &PlacementEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("events"),
	}
}

// PublishItemPlaced publishes an item placed event
func (p *PlacementEventPublisher) PublishItemPlaced(ctx context.Context, item *domain.Item, loc *domain.Location, m *domain.Movement, selectionMode string) {
	if p == nil {
		return
	}

	data := messaging.ItemPlacedEvent{
		SystemCode:    item.SystemCode,
		SKU:           item.SKU,
		Category:      item.Category,
		Weight:        item.Weight,
		LocationCode:  loc.Code,
		LocationLoad:  loc.CurrentWeight,
		MovementID:    m.ID,
		Operator:      m.Operator,
		PlacedAt:      m.Timestamp,
		SelectionMode: selectionMode,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemPlaced, data); err != nil {
		p.logger.Error().Err(err).Str("system_code", item.SystemCode).Msg("failed to publish item placed event")
	}
}

// PublishItemPicked publishes an item picked event
func (p *PlacementEventPublisher) PublishItemPicked(ctx context.Context, item *domain.Item, locationCode string, load decimal.Decimal, m *domain.Movement) {
	if p == nil {
		return
	}

	data := messaging.ItemPickedEvent{
		SystemCode:   item.SystemCode,
		SKU:          item.SKU,
		Weight:       item.Weight,
		LocationCode: locationCode,
		LocationLoad: load,
		MovementID:   m.ID,
		Operator:     m.Operator,
		PickedAt:     m.Timestamp,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemPicked, data); err != nil {
		p.logger.Error().Err(err).Str("system_code", item.SystemCode).Msg("failed to publish item picked event")
	}
}

// PublishCounterAdjusted publishes a counter adjusted event
func (p *PlacementEventPublisher) PublishCounterAdjusted(ctx context.Context, c *domain.CategoryCounter, m *domain.Movement) {
	if p == nil {
		return
	}

	data := messaging.CounterAdjustedEvent{
		Category:        c.Category,
		Direction:       string(m.Type),
		CurrentQuantity: c.CurrentQuantity,
		MaxQuantity:     c.MaxQuantity,
		MovementID:      m.ID,
		Operator:        m.Operator,
		AdjustedAt:      m.Timestamp,
	}
	if m.Quantity != nil {
		data.Quantity = *m.Quantity
	}
	if m.RequestID != nil {
		data.RequestID = *m.RequestID
	}

	if err := p.publisher.Publish(ctx, messaging.EventCounterAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("category", c.Category).Msg("failed to publish counter adjusted event")
	}
}
