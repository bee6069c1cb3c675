package consumers_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/consumers"
	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/memory"
	"github.com/rackslot/rackslot-backend/pkg/logger"
	"github.com/rackslot/rackslot-backend/pkg/messaging"
)

func event(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "warehouse-setup", "", data)
	require.NoError(t, err)
	return e
}

func TestHandleLocationUpserted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	h := consumers.NewLocationEventHandler(store, logger.NewNop())

	t.Run("rack type default capacity", func(t *testing.T) {
		err := h.HandleLocationUpserted(ctx, event(t, messaging.EventLocationUpserted, messaging.LocationUpsertedEvent{
			Row: "a", Bay: "1", Level: "2", RackType: "light", Available: true,
		}))
		require.NoError(t, err)

		loc, err := store.GetLocation(ctx, "A1-2")
		require.NoError(t, err)
		assert.True(t, loc.MaxWeight.Decimal.Equal(decimal.NewFromInt(250)))
		assert.False(t, loc.Verified)
	})

	t.Run("explicit capacity keeps load and verification", func(t *testing.T) {
		require.NoError(t, store.SetLocationVerified(ctx, "A1-2", true))
		max := decimal.NewFromInt(400)
		err := h.HandleLocationUpserted(ctx, event(t, messaging.EventLocationUpserted, messaging.LocationUpsertedEvent{
			Row: "A", Bay: "1", Level: "2", RackType: "standard", MaxWeight: &max, Available: true,
		}))
		require.NoError(t, err)

		loc, err := store.GetLocation(ctx, "A1-2")
		require.NoError(t, err)
		assert.True(t, loc.MaxWeight.Decimal.Equal(max))
		assert.Equal(t, domain.RackTypeStandard, loc.RackType)
		assert.True(t, loc.Verified)
	})

	t.Run("ground slot", func(t *testing.T) {
		err := h.HandleLocationUpserted(ctx, event(t, messaging.EventLocationUpserted, messaging.LocationUpsertedEvent{
			Row: "C", Bay: "3", Level: "0", RackType: "floor", Available: true,
		}))
		require.NoError(t, err)

		loc, err := store.GetLocation(ctx, "C3-0")
		require.NoError(t, err)
		assert.False(t, loc.Bounded())
	})

	t.Run("invalid geometry", func(t *testing.T) {
		err := h.HandleLocationUpserted(ctx, event(t, messaging.EventLocationUpserted, messaging.LocationUpsertedEvent{
			Row: "", Bay: "1", Level: "1", RackType: "shelf",
		}))
		assert.Error(t, err)
	})
}

func TestHandleLocationVerified(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	h := consumers.NewLocationEventHandler(store, logger.NewNop())

	loc, err := domain.NewLocation("B", "2", "1", "", domain.RackTypeStandard, domain.RackTypeStandard.DefaultMaxWeight())
	require.NoError(t, err)
	require.NoError(t, store.UpsertLocation(ctx, loc))

	require.NoError(t, h.HandleLocationVerified(ctx, event(t, messaging.EventLocationVerified,
		messaging.LocationVerifiedEvent{Code: "B2-1", Verified: true})))

	got, err := store.GetLocation(ctx, "B2-1")
	require.NoError(t, err)
	assert.True(t, got.Verified)

	err = h.HandleLocationVerified(ctx, event(t, messaging.EventLocationVerified,
		messaging.LocationVerifiedEvent{Code: "Z9-9", Verified: true}))
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}
