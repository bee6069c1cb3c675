package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CoilMetadata is required for coil items.
type CoilMetadata struct {
	CoilNumber string          `json:"coil_number" validate:"required"`
	Length     decimal.Decimal `json:"length"`
}

// PalletMetadata is optional detail for palletised goods.
type PalletMetadata struct {
	PalletType string `json:"pallet_type,omitempty"`
	Stackable  bool   `json:"stackable"`
}

// Metadata is a tagged variant keyed by Kind. Exactly the variant matching
// Kind may be set.
type Metadata struct {
	Kind   CategoryKind    `json:"kind"`
	Coil   *CoilMetadata   `json:"coil,omitempty"`
	Pallet *PalletMetadata `json:"pallet,omitempty"`
}

// ValidateFor checks the variant against the category kind.
func (m Metadata) ValidateFor(kind CategoryKind) error {
	details := map[string]string{}

	if m.Kind != "" && m.Kind != kind {
		details["metadata.kind"] = fmt.Sprintf("must be %s for this category", kind)
	}
	if m.Coil != nil && kind != KindCoil {
		details["metadata.coil"] = "only allowed for coil categories"
	}
	if m.Pallet != nil && kind != KindPallet {
		details["metadata.pallet"] = "only allowed for pallet categories"
	}

	if kind == KindCoil {
		switch {
		case m.Coil == nil:
			details["metadata.coil"] = "coil number and length are required"
		case m.Coil.CoilNumber == "":
			details["metadata.coil.coil_number"] = "this field is required"
		case !m.Coil.Length.IsPositive():
			details["metadata.coil.length"] = "must be positive"
		}
	}

	if len(details) > 0 {
		return validationError(details)
	}
	return nil
}

// Value implements driver.Valuer for JSONB columns.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *Metadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
}
