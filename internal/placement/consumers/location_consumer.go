package consumers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/events"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/pkg/logger"
	"github.com/rackslot/rackslot-backend/pkg/messaging"
)

// LocationEventHandler applies warehouse setup events to the catalog. Only
// geometry and flags change; current weight is owned by the ledger.
type LocationEventHandler struct {
	catalog repository.Catalog
	logger  *logger.Logger
}

// NewLocationEventHandler creates a handler writing to catalog
func NewLocationEventHandler(catalog repository.Catalog, log *logger.Logger) *LocationEventHandler {
	return &LocationEventHandler{catalog: catalog, logger: log.WithComponent("location-consumer")}
}

// HandleLocationUpserted creates or reshapes a slot. Without an explicit
// max weight the rack type's rated load applies.
func (h *LocationEventHandler) HandleLocationUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.LocationUpsertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("invalid location upserted payload: %w", err)
	}

	rackType := domain.RackType(data.RackType)
	maxWeight := rackType.DefaultMaxWeight()
	if data.MaxWeight != nil {
		maxWeight = decimal.NewNullDecimal(*data.MaxWeight)
	}

	loc, err := domain.NewLocation(data.Row, data.Bay, data.Level, data.Position, rackType, maxWeight)
	if err != nil {
		return err
	}
	loc.Available = data.Available

	// Verification is a separate physical step; keep what is already known.
	if existing, err := h.catalog.GetLocation(ctx, loc.Code); err == nil {
		loc.Verified = existing.Verified
	}

	if err := h.catalog.UpsertLocation(ctx, loc); err != nil {
		return err
	}

	h.logger.Info().
		Str("location_code", loc.Code).
		Str("rack_type", string(loc.RackType)).
		Bool("available", loc.Available).
		Msg("location upserted")
	return nil
}

// HandleLocationVerified records the outcome of a physical slot check
func (h *LocationEventHandler) HandleLocationVerified(ctx context.Context, event *messaging.Event) error {
	var data messaging.LocationVerifiedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("invalid location verified payload: %w", err)
	}

	if err := h.catalog.SetLocationVerified(ctx, data.Code, data.Verified); err != nil {
		return err
	}

	h.logger.Info().Str("location_code", data.Code).Bool("verified", data.Verified).Msg("location verification updated")
	return nil
}

// LocationEventConsumer consumes warehouse events
type LocationEventConsumer struct {
	consumer *messaging.Consumer
}

// NewLocationEventConsumer binds a queue to the warehouse exchange and
// registers the location handlers.
func NewLocationEventConsumer(rmq *messaging.RabbitMQ, handler *LocationEventHandler, log *logger.Logger) (*LocationEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, events.ServiceName+".warehouse-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeWarehouseEvents, "warehouse.location.#"); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventLocationUpserted, handler.HandleLocationUpserted)
	consumer.RegisterHandler(messaging.EventLocationVerified, handler.HandleLocationVerified)

	return &LocationEventConsumer{consumer: consumer}, nil
}

// Start starts consuming messages
func (c *LocationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
