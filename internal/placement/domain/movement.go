package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// Movement is an immutable audit record. Each successful commit appends
// exactly one.
type Movement struct {
	ID           string          `db:"id" json:"id"`
	ItemID       *string         `db:"item_id" json:"item_id,omitempty"`
	Type         MovementType    `db:"movement_type" json:"type"`
	Weight       decimal.Decimal `db:"weight" json:"weight"`
	Quantity     *int            `db:"quantity" json:"quantity,omitempty"`
	LocationCode *string         `db:"location_code" json:"location_code,omitempty"`
	Category     string          `db:"category" json:"category"`
	Operator     string          `db:"operator" json:"operator"`
	Reference    string          `db:"reference" json:"reference"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	RequestID    *string         `db:"request_id" json:"request_id,omitempty"`
	Timestamp    time.Time       `db:"created_at" json:"timestamp"`
}

// NewItemMovement records an item entering or leaving a slot.
func NewItemMovement(t MovementType, item *Item, locationCode, operator string, notes *string) *Movement {
	itemID := item.SystemCode
	return &Movement{
		ID:           uuid.New().String(),
		ItemID:       &itemID,
		Type:         t,
		Weight:       item.Weight,
		LocationCode: &locationCode,
		Category:     item.Category,
		Operator:     operator,
		Reference:    item.SKU,
		Notes:        notes,
		Timestamp:    time.Now().UTC(),
	}
}

// NewCounterMovement records a kanban quantity change. Weight is zero.
func NewCounterMovement(t MovementType, category string, quantity int, operator, requestID string, notes *string) *Movement {
	m := &Movement{
		ID:        uuid.New().String(),
		Type:      t,
		Weight:    decimal.Zero,
		Quantity:  &quantity,
		Category:  category,
		Operator:  operator,
		Reference: category,
		Notes:     notes,
		Timestamp: time.Now().UTC(),
	}
	if requestID != "" {
		m.RequestID = &requestID
	}
	return m
}

// CategoryCounter tracks stock of a count-managed category.
type CategoryCounter struct {
	Category        string    `db:"category" json:"category"`
	CurrentQuantity int       `db:"current_quantity" json:"current_quantity"`
	MaxQuantity     int       `db:"max_quantity" json:"max_quantity"`
	Version         int64     `db:"version" json:"version"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
