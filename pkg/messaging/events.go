package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	// Placement events, published by the placement service
	EventItemPlaced      = "placement.item.placed"
	EventItemPicked      = "placement.item.picked"
	EventCounterAdjusted = "placement.counter.adjusted"

	// Warehouse setup events, consumed by the placement service
	EventLocationUpserted = "warehouse.location.upserted"
	EventLocationVerified = "warehouse.location.verified"
)

// Exchange names
const (
	ExchangePlacementEvents = "placement.events"
	ExchangeWarehouseEvents = "warehouse.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Placement Events

// ItemPlacedEvent is published when a placement commit stores an item
type ItemPlacedEvent struct {
	SystemCode    string          `json:"system_code"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	Weight        decimal.Decimal `json:"weight"`
	LocationCode  string          `json:"location_code"`
	LocationLoad  decimal.Decimal `json:"location_load"`
	MovementID    string          `json:"movement_id"`
	Operator      string          `json:"operator"`
	PlacedAt      time.Time       `json:"placed_at"`
	SelectionMode string          `json:"selection_mode"`
}

// ItemPickedEvent is published when a pick commit removes an item
type ItemPickedEvent struct {
	SystemCode   string          `json:"system_code"`
	SKU          string          `json:"sku"`
	Weight       decimal.Decimal `json:"weight"`
	LocationCode string          `json:"location_code"`
	LocationLoad decimal.Decimal `json:"location_load"`
	MovementID   string          `json:"movement_id"`
	Operator     string          `json:"operator"`
	PickedAt     time.Time       `json:"picked_at"`
}

// CounterAdjustedEvent is published when a kanban counter moves
type CounterAdjustedEvent struct {
	Category        string    `json:"category"`
	Direction       string    `json:"direction"`
	Quantity        int       `json:"quantity"`
	CurrentQuantity int       `json:"current_quantity"`
	MaxQuantity     int       `json:"max_quantity"`
	MovementID      string    `json:"movement_id"`
	RequestID       string    `json:"request_id,omitempty"`
	Operator        string    `json:"operator"`
	AdjustedAt      time.Time `json:"adjusted_at"`
}

// Warehouse Events

// LocationUpsertedEvent carries slot geometry from warehouse setup tooling.
// It never carries load; current weight is owned by the placement service.
type LocationUpsertedEvent struct {
	Row       string           `json:"row"`
	Bay       string           `json:"bay"`
	Level     string           `json:"level"`
	Position  string           `json:"position,omitempty"`
	RackType  string           `json:"rack_type"`
	MaxWeight *decimal.Decimal `json:"max_weight,omitempty"`
	Available bool             `json:"available"`
}

// LocationVerifiedEvent is published when a slot has been physically checked
type LocationVerifiedEvent struct {
	Code     string `json:"code"`
	Verified bool   `json:"verified"`
}
