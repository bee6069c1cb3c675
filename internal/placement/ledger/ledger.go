// Package ledger owns every change to location weight and kanban counters.
//
// Each update reads the record with its version, computes the bounded
// result and writes it back conditioned on that version. A lost race
// retries the whole transaction on fresh state.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// TxFunc is a unit of work retried on conflict. It must be safe to re-run:
// all state it depends on has to be read through tx.
type TxFunc func(ctx context.Context, tx repository.Tx) error

// Ledger applies bounded updates through a repository.Store.
type Ledger struct {
	store      repository.Store
	maxRetries int
	backoff    time.Duration
	logger     *logger.Logger
}

// New creates a ledger. At least one attempt is always made.
func New(store repository.Store, cfg config.LedgerConfig, log *logger.Logger) *Ledger {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Ledger{
		store:      store,
		maxRetries: maxRetries,
		backoff:    cfg.RetryBackoff,
		logger:     log.WithComponent("ledger"),
	}
}

// Run executes fn in a transaction and retries it while it loses
// optimistic races. Once retries are exhausted the caller gets a
// capacity-class error naming key.
func (l *Ledger) Run(ctx context.Context, key string, fn TxFunc) error {
	for attempt := 1; ; attempt++ {
		err := l.store.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrentConflict) {
			return err
		}

		if attempt >= l.maxRetries {
			l.logger.Warn().Str("key", key).Int("attempts", attempt).Msg("ledger retries exhausted")
			return domain.ContentionExhausted(key, attempt)
		}

		l.logger.Debug().Str("key", key).Int("attempt", attempt).Msg("concurrent update, retrying")

		if l.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.backoff * time.Duration(attempt)):
			}
		}
	}
}

// ApplyWeightDelta adjusts one location in its own transaction.
func (l *Ledger) ApplyWeightDelta(ctx context.Context, code string, delta decimal.Decimal) (*domain.Location, error) {
	var loc *domain.Location
	err := l.Run(ctx, code, func(ctx context.Context, tx repository.Tx) error {
		var err error
		loc, err = l.ApplyWeightDeltaTx(ctx, tx, code, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// ApplyWeightDeltaTx adjusts a location inside the caller's transaction.
// Ground slots and slots without a rating have no upper bound. A negative
// result clamps at zero and is logged.
func (l *Ledger) ApplyWeightDeltaTx(ctx context.Context, tx repository.Tx, code string, delta decimal.Decimal) (*domain.Location, error) {
	loc, err := tx.GetLocation(ctx, code)
	if err != nil {
		return nil, err
	}

	bounds := Bounds{ClampAtZero: true}
	if loc.Bounded() {
		bounds.Max = loc.MaxWeight
	}

	res, err := Apply(loc.CurrentWeight, delta, bounds)
	if errors.Is(err, ErrAboveMax) {
		remaining, _ := loc.Remaining()
		return nil, domain.CapacityExceeded(code, delta, remaining)
	}
	if err != nil {
		return nil, err
	}

	if res.Clamped {
		l.logger.Warn().
			Str("location_code", code).
			Str("current_weight", loc.CurrentWeight.String()).
			Str("delta", delta.String()).
			Msg("location weight would go negative, clamped to zero")
	}

	if err := tx.UpdateLocationWeight(ctx, code, res.Value, loc.Version); err != nil {
		return nil, err
	}

	loc.CurrentWeight = res.Value
	loc.Version++
	return loc, nil
}

// AdjustCounterTx moves a kanban counter by delta inside the caller's
// transaction. Both bounds are hard: overflow is a capacity error and
// underflow is an insufficient-quantity error.
func (l *Ledger) AdjustCounterTx(ctx context.Context, tx repository.Tx, category string, delta int) (*domain.CategoryCounter, error) {
	c, err := tx.GetCounter(ctx, category)
	if err != nil {
		return nil, err
	}

	res, err := Apply(decimal.NewFromInt(int64(c.CurrentQuantity)), decimal.NewFromInt(int64(delta)), Bounds{
		Max: decimal.NewNullDecimal(decimal.NewFromInt(int64(c.MaxQuantity))),
	})
	switch {
	case errors.Is(err, ErrAboveMax):
		return nil, domain.CounterCapacityExceeded(category, delta, c.MaxQuantity-c.CurrentQuantity)
	case errors.Is(err, ErrBelowZero):
		return nil, domain.InsufficientQuantity(category, -delta, c.CurrentQuantity)
	case err != nil:
		return nil, err
	}

	next := int(res.Value.IntPart())
	if err := tx.UpdateCounterQuantity(ctx, category, next, c.Version); err != nil {
		return nil, err
	}

	c.CurrentQuantity = next
	c.Version++
	return c, nil
}
