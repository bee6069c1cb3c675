package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/postgres"
	"github.com/rackslot/rackslot-backend/pkg/testutil"
)

var locationCols = []string{
	"code", "row_label", "bay", "level", "slot_position", "rack_type", "max_weight",
	"current_weight", "available", "verified", "version", "created_at", "updated_at",
}

func TestStore_GetLocation(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mockDB.ExpectQuery("FROM locations WHERE code = $1").
			WithArgs("A1-1").
			WillReturnRows(testutil.MockRows(locationCols...).
				AddRow("A1-1", "A", "1", "1", "", "standard", "100.000", "40.000", true, true, 3, now, now))

		loc, err := store.GetLocation(context.Background(), "A1-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RackTypeStandard, loc.RackType)
		assert.True(t, loc.MaxWeight.Valid)
		assert.True(t, loc.CurrentWeight.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, int64(3), loc.Version)
	})

	t.Run("unbounded ground slot", func(t *testing.T) {
		mockDB.ExpectQuery("FROM locations WHERE code = $1").
			WithArgs("A1-0").
			WillReturnRows(testutil.MockRows(locationCols...).
				AddRow("A1-0", "A", "1", "0", "", "floor", nil, "0", true, true, 1, now, now))

		loc, err := store.GetLocation(context.Background(), "A1-0")
		require.NoError(t, err)
		assert.False(t, loc.MaxWeight.Valid)
		assert.True(t, loc.IsGround())
	})

	t.Run("missing", func(t *testing.T) {
		mockDB.ExpectQuery("FROM locations WHERE code = $1").
			WithArgs("Z9-9").
			WillReturnRows(testutil.MockRows(locationCols...))

		_, err := store.GetLocation(context.Background(), "Z9-9")
		assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	})

	mockDB.ExpectationsWereMet(t)
}

func TestStore_ListAvailable_FiltersInSQL(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	mockDB.ExpectQuery("WHERE available AND verified AND (level = '0' OR max_weight IS NULL OR max_weight - current_weight >= $1)").
		WithArgs(testutil.Decimal("30")).
		WillReturnRows(testutil.MockRows(locationCols...))

	locs, err := store.ListAvailable(context.Background(), decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.Empty(t, locs)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_UpsertLocation_PreservesWeight(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)
	now := time.Now().UTC()

	loc, err := domain.NewLocation("A", "1", "1", "", domain.RackTypeLight, domain.RackTypeLight.DefaultMaxWeight())
	require.NoError(t, err)

	mockDB.ExpectQuery("ON CONFLICT (code) DO UPDATE SET").
		WithArgs("A1-1", "A", "1", "1", "", domain.RackTypeLight, testutil.Decimal("250"), true, false).
		WillReturnRows(testutil.MockRows("current_weight", "version", "created_at", "updated_at").
			AddRow("75.5", 4, now, now))

	require.NoError(t, store.UpsertLocation(context.Background(), loc))
	assert.True(t, loc.CurrentWeight.Equal(decimal.RequireFromString("75.5")))
	assert.Equal(t, int64(4), loc.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_UpsertLocation_CapacityBelowLoad(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	loc := testutil.NewFixtureFactory().Location("A", "1", "1", testutil.WithMaxWeight("10"))
	mockDB.ExpectQuery("INSERT INTO locations").
		WillReturnError(&pq.Error{Code: "23514", Constraint: "locations_within_capacity"})

	err := store.UpsertLocation(context.Background(), loc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity")
	mockDB.ExpectationsWereMet(t)
}

func TestStore_SetLocationVerified_Missing(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	mockDB.ExpectExec("UPDATE locations SET verified = $2").
		WithArgs("Z9-9", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetLocationVerified(context.Background(), "Z9-9", true)
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_CreateItem_Duplicate(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	item := testutil.NewFixtureFactory().Item("10")
	mockDB.ExpectQuery("INSERT INTO items").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "items_pkey"})

	err := store.CreateItem(context.Background(), item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	mockDB.ExpectationsWereMet(t)
}

func TestStore_WithinTx_VersionGuard(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE locations SET current_weight = $2, version = version + 1").
		WithArgs("A1-1", testutil.Decimal("60"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.UpdateLocationWeight(ctx, "A1-1", decimal.NewFromInt(60), 1)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentConflict)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_WithinTx_Commits(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)
	now := time.Now().UTC()

	loc := "A1-1"
	item := testutil.NewFixtureFactory().Item("10", testutil.PlacedAt(loc))
	movement := domain.NewItemMovement(domain.MovementIn, item, loc, "op-1", nil)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE locations SET current_weight = $2").
		WithArgs(loc, testutil.Decimal("10"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("UPDATE items SET status = $2").
		WithArgs(item.SystemCode, domain.ItemPlaced, loc, true, int64(1)).
		WillReturnRows(testutil.MockRows("version", "updated_at").AddRow(2, now))
	mockDB.ExpectExec("INSERT INTO movements").
		WithArgs(testutil.AnyUUID{}, item.SystemCode, domain.MovementIn, testutil.Decimal("10"),
			nil, loc, "general", "op-1", item.SKU, nil, nil, testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UpdateLocationWeight(ctx, loc, decimal.NewFromInt(10), 1); err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, item, 1); err != nil {
			return err
		}
		return tx.AppendMovement(ctx, movement)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Version)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_WithinTx_DuplicateRequestID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	m := domain.NewCounterMovement(domain.MovementIn, "fasteners", 5, "op-1", "req-1", nil)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO movements").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "movements_request_id_key"})
	mockDB.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.AppendMovement(ctx, m)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentConflict)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_WithinTx_CallbackErrorRollsBack(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	boom := errors.New("boom")
	mockDB.ExpectBegin()
	mockDB.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	mockDB.ExpectationsWereMet(t)
}

func TestStore_FindMovementByRequestID_Absent(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	store := postgres.NewStore(mockDB.Wrapped)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM movements WHERE request_id = $1").
		WithArgs("req-9").
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		m, err := tx.FindMovementByRequestID(ctx, "req-9")
		assert.Nil(t, m)
		return err
	})
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}
