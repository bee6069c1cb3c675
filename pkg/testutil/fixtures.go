package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Location creates an empty slot at <row><bay>-<level>. Rack levels
// default to a standard slot holding up to 100 kg; ground is unbounded.
func (f *FixtureFactory) Location(row, bay, level string, opts ...func(*domain.Location)) *domain.Location {
	now := time.Now().UTC()
	loc := &domain.Location{
		Code:          domain.LocationCode(row, bay, level, ""),
		Row:           row,
		Bay:           bay,
		Level:         level,
		RackType:      domain.RackTypeStandard,
		MaxWeight:     decimal.NewNullDecimal(decimal.NewFromInt(100)),
		CurrentWeight: decimal.Zero,
		Available:     true,
		Verified:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if level == domain.GroundLevel {
		loc.RackType = domain.RackTypeFloor
		loc.MaxWeight = decimal.NullDecimal{}
	}

	for _, opt := range opts {
		opt(loc)
	}

	return loc
}

// WithMaxWeight sets the slot capacity in kg.
func WithMaxWeight(kg string) func(*domain.Location) {
	return func(l *domain.Location) {
		l.MaxWeight = decimal.NewNullDecimal(decimal.RequireFromString(kg))
	}
}

// Unbounded removes the capacity limit.
func Unbounded() func(*domain.Location) {
	return func(l *domain.Location) {
		l.MaxWeight = decimal.NullDecimal{}
	}
}

// WithCurrentWeight sets the load already on the slot.
func WithCurrentWeight(kg string) func(*domain.Location) {
	return func(l *domain.Location) {
		l.CurrentWeight = decimal.RequireFromString(kg)
	}
}

// Unavailable marks the slot out of service.
func Unavailable() func(*domain.Location) {
	return func(l *domain.Location) {
		l.Available = false
	}
}

// Item creates a pending item of the general category.
func (f *FixtureFactory) Item(weight string, opts ...func(*domain.Item)) *domain.Item {
	seq := f.nextSeq()
	now := time.Now().UTC()
	item := &domain.Item{
		SystemCode: fmt.Sprintf("SYS%s%04d", now.Format("20060102150405"), seq),
		SKU:        fmt.Sprintf("SKU-%04d", seq),
		Weight:     decimal.RequireFromString(weight),
		Category:   "general",
		Status:     domain.ItemPending,
		Metadata:   domain.Metadata{Kind: domain.KindGeneral},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, opt := range opts {
		opt(item)
	}

	return item
}

// WithSystemCode overrides the generated system code.
func WithSystemCode(code string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.SystemCode = code
	}
}

// WithCategory sets the item category.
func WithCategory(category string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.Category = category
	}
}

// PlacedAt marks the item as placed in the given slot.
func PlacedAt(code string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.Status = domain.ItemPlaced
		i.LocationCode = &code
		i.LocationVerified = true
	}
}
