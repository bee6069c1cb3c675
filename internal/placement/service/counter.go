package service

import (
	"context"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/pkg/errors"
)

// Kanban counters

// AdjustCounterInput is one quantity movement of a count-managed category.
type AdjustCounterInput struct {
	Category  string
	Direction domain.MovementType
	Quantity  int
	// RequestID makes the call idempotent when set.
	RequestID string
	Operator  string
	Notes     *string
}

// CounterAdjustment is the outcome of AdjustCounter. Replayed is set when
// RequestID had already been applied and nothing changed.
type CounterAdjustment struct {
	Counter  *domain.CategoryCounter `json:"counter"`
	Movement *domain.Movement        `json:"movement"`
	Replayed bool                    `json:"replayed"`
}

// AdjustCounter moves a kanban counter within [0, max] and records one
// movement with quantity set and zero weight.
func (s *PlacementService) AdjustCounter(ctx context.Context, in AdjustCounterInput) (*CounterAdjustment, error) {
	if _, err := s.countManaged(in.Category); err != nil {
		return nil, err
	}

	details := map[string]string{}
	if in.Quantity <= 0 {
		details["quantity"] = "must be positive"
	}
	if in.Direction != domain.MovementIn && in.Direction != domain.MovementOut {
		details["direction"] = "must be one of: IN, OUT"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	delta := in.Quantity
	if in.Direction == domain.MovementOut {
		delta = -in.Quantity
	}

	var result *CounterAdjustment
	err := s.ledger.Run(ctx, in.Category, func(ctx context.Context, tx repository.Tx) error {
		result = nil

		if in.RequestID != "" {
			original, err := tx.FindMovementByRequestID(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if original != nil {
				if !sameAdjustment(original, in) {
					return domain.RequestIDReused(in.RequestID, original)
				}
				counter, err := tx.GetCounter(ctx, original.Category)
				if err != nil {
					return err
				}
				result = &CounterAdjustment{Counter: counter, Movement: original, Replayed: true}
				return nil
			}
		}

		counter, err := s.ledger.AdjustCounterTx(ctx, tx, in.Category, delta)
		if err != nil {
			return err
		}

		movement := domain.NewCounterMovement(in.Direction, in.Category, in.Quantity, in.Operator, in.RequestID, in.Notes)
		if err := tx.AppendMovement(ctx, movement); err != nil {
			return err
		}
		result = &CounterAdjustment{Counter: counter, Movement: movement}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		s.logger.Info().
			Str("category", in.Category).
			Str("request_id", in.RequestID).
			Msg("counter request already applied")
		return result, nil
	}

	s.logger.Info().
		Str("category", in.Category).
		Str("direction", string(in.Direction)).
		Int("quantity", in.Quantity).
		Int("current_quantity", result.Counter.CurrentQuantity).
		Str("operator", in.Operator).
		Msg("counter adjusted")

	s.publisher.PublishCounterAdjusted(ctx, result.Counter, result.Movement)
	return result, nil
}

// GetCounter returns the counter of a count-managed category.
func (s *PlacementService) GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error) {
	if _, err := s.countManaged(category); err != nil {
		return nil, err
	}
	return s.store.GetCounter(ctx, category)
}

// EnsureCounters creates a zero counter for every kanban category that has
// none yet.
func (s *PlacementService) EnsureCounters(ctx context.Context) error {
	for _, c := range s.categories.CountManaged() {
		if err := s.store.EnsureCounter(ctx, c.Code, c.MaxQuantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *PlacementService) countManaged(code string) (domain.Category, error) {
	category, err := s.categories.Lookup(code)
	if err != nil {
		return domain.Category{}, err
	}
	if !category.CountManaged() {
		return domain.Category{}, errors.Validation(map[string]string{"category": "is not count-managed"})
	}
	return category, nil
}

func sameAdjustment(m *domain.Movement, in AdjustCounterInput) bool {
	return m.Category == in.Category &&
		m.Type == in.Direction &&
		m.Quantity != nil && *m.Quantity == in.Quantity
}
