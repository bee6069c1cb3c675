package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroundLevel is the level label of floor slots. Ground slots have no
// upper weight bound.
const GroundLevel = "0"

// RackType classifies the physical rack a slot belongs to.
type RackType string

const (
	RackTypeFloor    RackType = "floor"
	RackTypeLight    RackType = "light"
	RackTypeStandard RackType = "standard"
	RackTypeHeavy    RackType = "heavy"
)

type rackSpec struct {
	height    decimal.Decimal
	maxWeight decimal.NullDecimal
}

var rackSpecs = map[RackType]rackSpec{
	RackTypeFloor:    {height: decimal.Zero},
	RackTypeLight:    {height: decimal.RequireFromString("1.2"), maxWeight: decimal.NewNullDecimal(decimal.NewFromInt(250))},
	RackTypeStandard: {height: decimal.RequireFromString("1.8"), maxWeight: decimal.NewNullDecimal(decimal.NewFromInt(1000))},
	RackTypeHeavy:    {height: decimal.RequireFromString("2.4"), maxWeight: decimal.NewNullDecimal(decimal.NewFromInt(2500))},
}

// Valid reports whether t is a known rack type.
func (t RackType) Valid() bool {
	_, ok := rackSpecs[t]
	return ok
}

// Height is the clear height of a slot in metres.
func (t RackType) Height() decimal.Decimal {
	return rackSpecs[t].height
}

// DefaultMaxWeight is the rated load used when seeding without an explicit max.
func (t RackType) DefaultMaxWeight() decimal.NullDecimal {
	return rackSpecs[t].maxWeight
}

var codePart = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Location is a single storage slot.
type Location struct {
	Code          string              `db:"code" json:"code"`
	Row           string              `db:"row_label" json:"row"`
	Bay           string              `db:"bay" json:"bay"`
	Level         string              `db:"level" json:"level"`
	Position      string              `db:"slot_position" json:"position,omitempty"`
	RackType      RackType            `db:"rack_type" json:"rack_type"`
	MaxWeight     decimal.NullDecimal `db:"max_weight" json:"max_weight"`
	CurrentWeight decimal.Decimal     `db:"current_weight" json:"current_weight"`
	Available     bool                `db:"available" json:"available"`
	Verified      bool                `db:"verified" json:"verified"`
	Version       int64               `db:"version" json:"version"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// LocationCode builds <row><bay>-<level>[-<position>], e.g. A1-0 or B2-2-3.
func LocationCode(row, bay, level, position string) string {
	code := fmt.Sprintf("%s%s-%s", strings.ToUpper(row), bay, level)
	if position != "" {
		code += "-" + position
	}
	return code
}

// NewLocation validates the geometry and derives the code. A ground slot
// never carries a max weight.
func NewLocation(row, bay, level, position string, rackType RackType, maxWeight decimal.NullDecimal) (*Location, error) {
	details := map[string]string{}
	for field, v := range map[string]string{"row": row, "bay": bay, "level": level} {
		if !codePart.MatchString(v) {
			details[field] = "must be non-empty and alphanumeric"
		}
	}
	if position != "" && !codePart.MatchString(position) {
		details["position"] = "must be alphanumeric"
	}
	if rackType == "" {
		rackType = RackTypeStandard
	}
	if !rackType.Valid() {
		details["rack_type"] = "must be one of: floor, light, standard, heavy"
	}
	if maxWeight.Valid && !maxWeight.Decimal.IsPositive() {
		details["max_weight"] = "must be positive"
	}
	if len(details) > 0 {
		return nil, validationError(details)
	}

	loc := &Location{
		Code:          LocationCode(row, bay, level, position),
		Row:           strings.ToUpper(row),
		Bay:           bay,
		Level:         level,
		Position:      position,
		RackType:      rackType,
		MaxWeight:     maxWeight,
		CurrentWeight: decimal.Zero,
		Available:     true,
	}
	if loc.IsGround() {
		loc.MaxWeight = decimal.NullDecimal{}
	}
	return loc, nil
}

// IsGround reports whether the slot is on the floor.
func (l *Location) IsGround() bool {
	return l.Level == GroundLevel
}

// Bounded reports whether the slot enforces an upper weight bound.
func (l *Location) Bounded() bool {
	return !l.IsGround() && l.MaxWeight.Valid
}

// Height is derived from the rack type.
func (l *Location) Height() decimal.Decimal {
	return l.RackType.Height()
}

// Selectable reports whether the slot may receive goods at all.
func (l *Location) Selectable() bool {
	return l.Available && l.Verified
}

// Remaining returns the free capacity. ok is false for unbounded slots.
func (l *Location) Remaining() (remaining decimal.Decimal, ok bool) {
	if !l.Bounded() {
		return decimal.Zero, false
	}
	return l.MaxWeight.Decimal.Sub(l.CurrentWeight), true
}

// Fits reports whether weight can be added without exceeding the bound.
func (l *Location) Fits(weight decimal.Decimal) bool {
	if !l.Bounded() {
		return true
	}
	return l.CurrentWeight.Add(weight).LessThanOrEqual(l.MaxWeight.Decimal)
}

// Empty reports whether nothing is stored in the slot.
func (l *Location) Empty() bool {
	return l.CurrentWeight.IsZero()
}
