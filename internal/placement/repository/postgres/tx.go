package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/pkg/database"
)

// txStore implements repository.Tx on an open transaction.
type txStore struct {
	tx *sqlx.Tx
}

func (t *txStore) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	return getLocation(ctx, t.tx, code)
}

func (t *txStore) UpdateLocationWeight(ctx context.Context, code string, weight decimal.Decimal, expectedVersion int64) error {
	return conflictOrNil(t.tx.ExecContext(ctx, `
		UPDATE locations
		SET current_weight = $2, version = version + 1, updated_at = NOW()
		WHERE code = $1 AND version = $3
	`, code, weight, expectedVersion))
}

func (t *txStore) GetItem(ctx context.Context, systemCode string) (*domain.Item, error) {
	return getItem(ctx, t.tx, systemCode)
}

func (t *txStore) UpdateItem(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	err := t.tx.QueryRowxContext(ctx, `
		UPDATE items
		SET status = $2, location_code = $3, location_verified = $4,
			version = version + 1, updated_at = NOW()
		WHERE system_code = $1 AND version = $5
		RETURNING version, updated_at
	`, item.SystemCode, item.Status, item.LocationCode, item.LocationVerified, expectedVersion,
	).Scan(&item.Version, &item.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.ErrConcurrentConflict
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to update item %s: %w", item.SystemCode, err)
	}
	return nil
}

func (t *txStore) GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error) {
	return getCounter(ctx, t.tx, category)
}

func (t *txStore) UpdateCounterQuantity(ctx context.Context, category string, quantity int, expectedVersion int64) error {
	return conflictOrNil(t.tx.ExecContext(ctx, `
		UPDATE category_counters
		SET current_quantity = $2, version = version + 1, updated_at = NOW()
		WHERE category = $1 AND version = $3
	`, category, quantity, expectedVersion))
}

func (t *txStore) AppendMovement(ctx context.Context, m *domain.Movement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO movements (`+movementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, m.ID, m.ItemID, m.Type, m.Weight, m.Quantity, m.LocationCode, m.Category,
		m.Operator, m.Reference, m.Notes, m.RequestID, m.Timestamp)
	if err != nil {
		if database.IsUniqueViolation(err, "movements_request_id_key") {
			return domain.ErrConcurrentConflict
		}
		return fmt.Errorf("failed to record movement: %w", err)
	}
	return nil
}

func (t *txStore) FindMovementByRequestID(ctx context.Context, requestID string) (*domain.Movement, error) {
	var m domain.Movement
	err := t.tx.GetContext(ctx, &m, `SELECT `+movementColumns+` FROM movements WHERE request_id = $1`, requestID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up request %s: %w", requestID, err)
	}
	return &m, nil
}
