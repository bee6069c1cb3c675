package domain_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	apperrors "github.com/rackslot/rackslot-backend/pkg/errors"
)

func kg(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLocationCode(t *testing.T) {
	tests := []struct {
		row, bay, level, position string
		want                      string
	}{
		{"A", "1", "0", "", "A1-0"},
		{"b", "2", "2", "", "B2-2"},
		{"C", "12", "3", "4", "C12-3-4"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.LocationCode(tt.row, tt.bay, tt.level, tt.position))
		})
	}
}

func TestNewLocation(t *testing.T) {
	t.Run("ground slot drops max weight", func(t *testing.T) {
		loc, err := domain.NewLocation("A", "1", "0", "", domain.RackTypeFloor, decimal.NewNullDecimal(kg("100")))
		require.NoError(t, err)
		assert.Equal(t, "A1-0", loc.Code)
		assert.True(t, loc.IsGround())
		assert.False(t, loc.MaxWeight.Valid)
		assert.False(t, loc.Bounded())
	})

	t.Run("defaults to standard rack", func(t *testing.T) {
		loc, err := domain.NewLocation("A", "1", "2", "", "", decimal.NewNullDecimal(kg("100")))
		require.NoError(t, err)
		assert.Equal(t, domain.RackTypeStandard, loc.RackType)
		assert.True(t, loc.Height().Equal(kg("1.8")))
	})

	t.Run("rejects bad geometry", func(t *testing.T) {
		_, err := domain.NewLocation("", "1", "x-1", "", "mezzanine", decimal.NewNullDecimal(kg("-5")))
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Details, "row")
		assert.Contains(t, appErr.Details, "level")
		assert.Contains(t, appErr.Details, "rack_type")
		assert.Contains(t, appErr.Details, "max_weight")
	})
}

func TestLocation_Fits(t *testing.T) {
	rack := &domain.Location{Level: "1", MaxWeight: decimal.NewNullDecimal(kg("100")), CurrentWeight: kg("40")}
	assert.True(t, rack.Fits(kg("60")))
	assert.False(t, rack.Fits(kg("60.001")))

	remaining, ok := rack.Remaining()
	assert.True(t, ok)
	assert.True(t, remaining.Equal(kg("60")))

	ground := &domain.Location{Level: "0", CurrentWeight: kg("10000")}
	assert.True(t, ground.Fits(kg("999999")))
	_, ok = ground.Remaining()
	assert.False(t, ok)

	unrated := &domain.Location{Level: "3", CurrentWeight: kg("5")}
	assert.True(t, unrated.Fits(kg("1000")))
}

func TestRackType(t *testing.T) {
	assert.True(t, domain.RackTypeFloor.Height().IsZero())
	assert.False(t, domain.RackTypeFloor.DefaultMaxWeight().Valid)
	assert.True(t, domain.RackTypeLight.Height().Equal(kg("1.2")))
	assert.True(t, domain.RackTypeHeavy.Height().Equal(kg("2.4")))
	assert.True(t, domain.RackTypeHeavy.DefaultMaxWeight().Decimal.GreaterThan(domain.RackTypeStandard.DefaultMaxWeight().Decimal))
	assert.False(t, domain.RackType("mezzanine").Valid())
}

func TestItem_Transitions(t *testing.T) {
	item := &domain.Item{SystemCode: "SYS1", Status: domain.ItemPending}
	assert.True(t, item.Consistent())

	require.NoError(t, item.Place("A1-1"))
	assert.Equal(t, domain.ItemPlaced, item.Status)
	assert.Equal(t, "A1-1", item.Location())
	assert.True(t, item.LocationVerified)
	assert.True(t, item.Consistent())

	err := item.Place("B1-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, item.Remove())
	assert.Equal(t, domain.ItemRemoved, item.Status)
	assert.Nil(t, item.LocationCode)
	assert.True(t, item.Consistent())

	assert.ErrorIs(t, item.Remove(), domain.ErrInvalidTransition)
}

func TestNewItem(t *testing.T) {
	categories := domain.DefaultCategories()
	general, err := categories.Lookup("general")
	require.NoError(t, err)
	coil, err := categories.Lookup("steel-coil")
	require.NoError(t, err)
	kanban, err := categories.Lookup("fasteners")
	require.NoError(t, err)

	tests := []struct {
		name     string
		weight   string
		category domain.Category
		metadata domain.Metadata
		wantErr  bool
	}{
		{"general item", "12.5", general, domain.Metadata{}, false},
		{"zero weight", "0", general, domain.Metadata{}, true},
		{"coil requires metadata", "800", coil, domain.Metadata{}, true},
		{"coil with metadata", "800", coil, domain.Metadata{Coil: &domain.CoilMetadata{CoilNumber: "C-001", Length: kg("120")}}, false},
		{"coil metadata on general item", "10", general, domain.Metadata{Coil: &domain.CoilMetadata{CoilNumber: "C-001", Length: kg("1")}}, true},
		{"kanban categories are not slotted", "1", kanban, domain.Metadata{}, true},
		{"kind mismatch", "10", general, domain.Metadata{Kind: domain.KindPallet}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := domain.NewItem("SYS1", "SKU-1", "", kg(tt.weight), tt.category, tt.metadata)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.ItemPending, item.Status)
			assert.Equal(t, tt.category.Kind, item.Metadata.Kind)
			assert.Nil(t, item.LocationCode)
		})
	}
}

func TestMetadata_ScanValue(t *testing.T) {
	in := domain.Metadata{Kind: domain.KindCoil, Coil: &domain.CoilMetadata{CoilNumber: "C-9", Length: kg("42.5")}}
	raw, err := in.Value()
	require.NoError(t, err)

	var out domain.Metadata
	require.NoError(t, out.Scan(raw))
	require.NotNil(t, out.Coil)
	assert.Equal(t, "C-9", out.Coil.CoilNumber)
	assert.True(t, out.Coil.Length.Equal(kg("42.5")))

	require.NoError(t, out.Scan(nil))
	assert.Equal(t, domain.Metadata{}, out)
	assert.Error(t, out.Scan(42))
}

func TestSystemCodeGenerator_Unique(t *testing.T) {
	gen := domain.NewSystemCodeGenerator("")
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		code := gen.Next()
		assert.Regexp(t, `^SYS\d{14}[0-9A-F]{6}\d{4}$`, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestSystemCodeGenerator_SameSecond(t *testing.T) {
	at := time.Date(2026, 10, 14, 19, 31, 30, 0, time.UTC)
	clock := func() time.Time { return at }

	t.Run("two instances never share a code", func(t *testing.T) {
		a := domain.NewSystemCodeGeneratorAt("", clock)
		b := domain.NewSystemCodeGeneratorAt("", clock)
		require.NotEqual(t, a.Node(), b.Node())
		assert.NotEqual(t, a.Next(), b.Next())
	})

	t.Run("configured node is embedded", func(t *testing.T) {
		gen := domain.NewSystemCodeGeneratorAt("dock7", clock)
		assert.Equal(t, "SYS20261014193130DOCK70001", gen.Next())
	})

	t.Run("exhausted second borrows the next one", func(t *testing.T) {
		gen := domain.NewSystemCodeGeneratorAt("N1", clock)
		seen := make(map[string]bool, 10000)
		var last string
		for i := 0; i < 10000; i++ {
			last = gen.Next()
			require.False(t, seen[last], "duplicate code %s", last)
			seen[last] = true
		}
		assert.Equal(t, "SYS20261014193131N10001", last)
	})
}

func TestErrorConstructors(t *testing.T) {
	notFound := domain.LocationNotFound("A1-1")
	assert.ErrorIs(t, notFound, domain.ErrLocationNotFound)
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode)
	assert.Equal(t, "LOCATION_NOT_FOUND", notFound.Code)
	assert.Equal(t, "location A1-1 not found", notFound.Message)

	counter := domain.CounterNotFound("fasteners")
	assert.ErrorIs(t, counter, domain.ErrCounterNotFound)
	assert.Equal(t, "counter for category fasteners not found", counter.Message)

	mismatch := domain.LocationMismatch("A1-1", "A1-2")
	assert.ErrorIs(t, mismatch, domain.ErrLocationMismatch)
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.StatusCode)
	assert.Equal(t, "A1-2", mismatch.Details["scanned"])

	ineligible := domain.LocationNotEligible("A1-1", "not verified")
	assert.ErrorIs(t, ineligible, domain.ErrLocationNotEligible)
	assert.Equal(t, http.StatusUnprocessableEntity, ineligible.StatusCode)
	assert.Equal(t, "LOCATION_NOT_ELIGIBLE", ineligible.Code)
}

func TestCategoryRegistry(t *testing.T) {
	r := domain.DefaultCategories()

	_, err := r.Lookup("unknown")
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	kanban := r.CountManaged()
	require.Len(t, kanban, 2)
	assert.Equal(t, "consumables", kanban[0].Code)
	assert.Equal(t, "fasteners", kanban[1].Code)

	coil, _ := r.Lookup("steel-coil")
	assert.True(t, coil.GroundRequired)
}

func TestErrors_MatchSentinels(t *testing.T) {
	err := domain.ContentionExhausted("A1-1", 5)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.ErrorIs(t, err, domain.ErrConcurrentConflict)
	assert.Equal(t, 409, err.StatusCode)

	assert.Equal(t, 422, domain.ItemMismatch("a", "b").StatusCode)
	assert.Equal(t, 404, domain.LocationNotFound("Z9-9").StatusCode)

	body, err2 := json.Marshal(domain.CapacityExceeded("A1-1", kg("60"), kg("40")))
	require.NoError(t, err2)
	assert.Contains(t, string(body), `"CAPACITY_EXCEEDED"`)
}
