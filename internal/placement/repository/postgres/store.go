// Package postgres is the PostgreSQL Store. Conditional writes filter on
// the version column so a lost race affects zero rows instead of
// overwriting a newer value.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/pkg/database"
	"github.com/rackslot/rackslot-backend/pkg/errors"
)

const (
	locationColumns = `code, row_label, bay, level, slot_position, rack_type, max_weight,
		current_weight, available, verified, version, created_at, updated_at`

	itemColumns = `system_code, sku, description, weight, category, status, location_code,
		location_verified, metadata, version, created_at, updated_at`

	movementColumns = `id, item_id, movement_type, weight, quantity, location_code, category,
		operator, reference, notes, request_id, created_at`

	counterColumns = `category, current_quantity, max_quantity, version, updated_at`
)

// Store handles placement persistence
type Store struct {
	db *database.DB
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a new placement store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// ListAvailable returns selectable slots that could take minWeight more.
// Ground and unbounded slots always qualify.
func (s *Store) ListAvailable(ctx context.Context, minWeight decimal.Decimal) ([]*domain.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE available AND verified
		  AND (level = '0' OR max_weight IS NULL OR max_weight - current_weight >= $1)
		ORDER BY code
	`
	var locs []*domain.Location
	if err := s.db.SelectContext(ctx, &locs, query, minWeight); err != nil {
		return nil, fmt.Errorf("failed to list available locations: %w", err)
	}
	return locs, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY code`
	var locs []*domain.Location
	if err := s.db.SelectContext(ctx, &locs, query); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}

func (s *Store) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	return getLocation(ctx, s.db, code)
}

// UpsertLocation writes geometry and flags. current_weight and version are
// never touched by an update; a new maximum below the current load is
// rejected by the capacity check.
func (s *Store) UpsertLocation(ctx context.Context, loc *domain.Location) error {
	query := `
		INSERT INTO locations (code, row_label, bay, level, slot_position, rack_type, max_weight, available, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			row_label = EXCLUDED.row_label,
			bay = EXCLUDED.bay,
			level = EXCLUDED.level,
			slot_position = EXCLUDED.slot_position,
			rack_type = EXCLUDED.rack_type,
			max_weight = EXCLUDED.max_weight,
			available = EXCLUDED.available,
			verified = EXCLUDED.verified,
			updated_at = NOW()
		RETURNING current_weight, version, created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		loc.Code, loc.Row, loc.Bay, loc.Level, loc.Position, loc.RackType,
		loc.MaxWeight, loc.Available, loc.Verified,
	).Scan(&loc.CurrentWeight, &loc.Version, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to upsert location %s: %w", loc.Code, err)
	}
	return nil
}

func (s *Store) SetLocationVerified(ctx context.Context, code string, verified bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE locations SET verified = $2, updated_at = NOW() WHERE code = $1`,
		code, verified,
	)
	if err != nil {
		return fmt.Errorf("failed to update location %s: %w", code, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.LocationNotFound(code)
	}
	return nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (system_code, sku, description, weight, category, status, location_code, location_verified, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING version, created_at, updated_at
	`
	err := s.db.QueryRowxContext(ctx, query,
		item.SystemCode, item.SKU, item.Description, item.Weight, item.Category,
		item.Status, item.LocationCode, item.LocationVerified, item.Metadata,
	).Scan(&item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, systemCode string) (*domain.Item, error) {
	return getItem(ctx, s.db, systemCode)
}

func (s *Store) ListMovements(ctx context.Context, itemID string) ([]*domain.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE item_id = $1
		ORDER BY created_at, id
	`
	var movements []*domain.Movement
	if err := s.db.SelectContext(ctx, &movements, query, itemID); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (s *Store) GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error) {
	return getCounter(ctx, s.db, category)
}

func (s *Store) EnsureCounter(ctx context.Context, category string, maxQuantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_counters (category, current_quantity, max_quantity)
		VALUES ($1, 0, $2)
		ON CONFLICT (category) DO NOTHING
	`, category, maxQuantity)
	if err != nil {
		return fmt.Errorf("failed to ensure counter %s: %w", category, err)
	}
	return nil
}

// WithinTx runs fn in a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := s.db.Transaction(ctx, func(sqlTx *sqlx.Tx) error {
		return fn(ctx, &txStore{tx: sqlTx})
	})
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err, "movements_request_id_key") {
		return domain.ErrConcurrentConflict
	}
	return err
}

func getLocation(ctx context.Context, q sqlx.QueryerContext, code string) (*domain.Location, error) {
	var loc domain.Location
	err := sqlx.GetContext(ctx, q, &loc, `SELECT `+locationColumns+` FROM locations WHERE code = $1`, code)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, domain.LocationNotFound(code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", code, err)
	}
	return &loc, nil
}

func getItem(ctx context.Context, q sqlx.QueryerContext, systemCode string) (*domain.Item, error) {
	var item domain.Item
	err := sqlx.GetContext(ctx, q, &item, `SELECT `+itemColumns+` FROM items WHERE system_code = $1`, systemCode)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, domain.ItemNotFound(systemCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", systemCode, err)
	}
	return &item, nil
}

func getCounter(ctx context.Context, q sqlx.QueryerContext, category string) (*domain.CategoryCounter, error) {
	var c domain.CategoryCounter
	err := sqlx.GetContext(ctx, q, &c, `SELECT `+counterColumns+` FROM category_counters WHERE category = $1`, category)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, domain.CounterNotFound(category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counter %s: %w", category, err)
	}
	return &c, nil
}

// conflictOrNil turns a conditional write that matched no row into a
// conflict. Check violations are mapped the same way, since they mean a
// concurrent writer moved the row past a bound first.
func conflictOrNil(result sql.Result, err error) error {
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil && errors.Is(appErr, errors.ErrConflict) {
			return domain.ErrConcurrentConflict
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConcurrentConflict
	}
	return nil
}
