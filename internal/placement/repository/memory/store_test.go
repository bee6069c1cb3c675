package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/memory"
	"github.com/rackslot/rackslot-backend/pkg/testutil"
)

func addWeight(ctx context.Context, tx repository.Tx, code, kg string) error {
	loc, err := tx.GetLocation(ctx, code)
	if err != nil {
		return err
	}
	next := loc.CurrentWeight.Add(decimal.RequireFromString(kg))
	return tx.UpdateLocationWeight(ctx, code, next, loc.Version)
}

func TestWithinTx_KeepsConcurrentGeometryWrites(t *testing.T) {
	ctx := context.Background()
	f := testutil.NewFixtureFactory()

	t.Run("verification change survives a weight commit", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.UpsertLocation(ctx, f.Location("A", "1", "1")))

		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := addWeight(ctx, tx, "A1-1", "60"); err != nil {
				return err
			}
			return store.SetLocationVerified(ctx, "A1-1", false)
		})
		require.NoError(t, err)

		loc, err := store.GetLocation(ctx, "A1-1")
		require.NoError(t, err)
		assert.False(t, loc.Verified)
		assert.Equal(t, "60", loc.CurrentWeight.String())
		assert.Equal(t, int64(2), loc.Version)
	})

	t.Run("re-rating survives and rejects the overflowing load", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.UpsertLocation(ctx, f.Location("A", "1", "2")))

		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := addWeight(ctx, tx, "A1-2", "60"); err != nil {
				return err
			}
			return store.UpsertLocation(ctx, f.Location("A", "1", "2", testutil.WithMaxWeight("50")))
		})
		assert.ErrorIs(t, err, domain.ErrConcurrentConflict)

		loc, err := store.GetLocation(ctx, "A1-2")
		require.NoError(t, err)
		assert.Equal(t, "50", loc.MaxWeight.Decimal.String())
		assert.True(t, loc.CurrentWeight.IsZero())
	})

	t.Run("re-rating that still fits keeps the new max", func(t *testing.T) {
		store := memory.New()
		require.NoError(t, store.UpsertLocation(ctx, f.Location("A", "1", "3")))

		err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := addWeight(ctx, tx, "A1-3", "40"); err != nil {
				return err
			}
			return store.UpsertLocation(ctx, f.Location("A", "1", "3", testutil.WithMaxWeight("250")))
		})
		require.NoError(t, err)

		loc, err := store.GetLocation(ctx, "A1-3")
		require.NoError(t, err)
		assert.Equal(t, "250", loc.MaxWeight.Decimal.String())
		assert.Equal(t, "40", loc.CurrentWeight.String())
	})
}

func TestWithinTx_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertLocation(ctx, testutil.NewFixtureFactory().Location("B", "1", "1")))

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := addWeight(ctx, tx, "B1-1", "10"); err != nil {
			return err
		}
		return store.WithinTx(ctx, func(ctx context.Context, inner repository.Tx) error {
			return addWeight(ctx, inner, "B1-1", "5")
		})
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentConflict)

	loc, err := store.GetLocation(ctx, "B1-1")
	require.NoError(t, err)
	assert.Equal(t, "5", loc.CurrentWeight.String())
}
