package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
)

// Pick workflow

// StartPick opens a pick session for a placed item.
func (s *PlacementService) StartPick(ctx context.Context, itemCode string) (*workflow.Pick, error) {
	item, err := s.store.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}

	p, err := workflow.NewPick(newSessionID(), item)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SavePick(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPick loads a pick session
func (s *PlacementService) GetPick(ctx context.Context, id string) (*workflow.Pick, error) {
	return s.sessions.GetPick(ctx, id)
}

// ScanPickItem checks the scanned label against the item being picked.
func (s *PlacementService) ScanPickItem(ctx context.Context, id, scanned string) (*workflow.Pick, error) {
	return s.stepPick(ctx, id, func(p *workflow.Pick) error {
		return p.ScanItem(scanned)
	})
}

// CancelPick abandons the pick; the item stays where it is.
func (s *PlacementService) CancelPick(ctx context.Context, id string) (*workflow.Pick, error) {
	return s.stepPick(ctx, id, (*workflow.Pick).Cancel)
}

// CommitPick takes the item out of its slot: the slot load drops by the
// item weight, the item is removed and one OUT movement is recorded.
// Committing a picked session again, or picking an already removed item,
// is a no-op.
func (s *PlacementService) CommitPick(ctx context.Context, id, operator string) (*workflow.Pick, error) {
	p, err := s.sessions.GetPick(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State == workflow.PickPicked {
		return p, nil
	}
	if err := p.ReadyToCommit(); err != nil {
		return nil, err
	}

	var (
		item     *domain.Item
		code     string
		load     decimal.Decimal
		movement *domain.Movement
	)
	err = s.ledger.Run(ctx, p.LocationCode, func(ctx context.Context, tx repository.Tx) error {
		item, movement = nil, nil

		current, err := tx.GetItem(ctx, p.ItemCode)
		if err != nil {
			return err
		}
		if current.Status == domain.ItemRemoved {
			return nil
		}
		if current.Status != domain.ItemPlaced {
			return domain.InvalidTransition("commit pick", string(current.Status))
		}

		code = current.Location()
		loc, err := s.ledger.ApplyWeightDeltaTx(ctx, tx, code, current.Weight.Neg())
		if err != nil {
			return err
		}
		load = loc.CurrentWeight

		expected := current.Version
		if err := current.Remove(); err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, current, expected); err != nil {
			return err
		}

		movement = domain.NewItemMovement(domain.MovementOut, current, code, operator, nil)
		if err := tx.AppendMovement(ctx, movement); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	movementID := ""
	if movement != nil {
		movementID = movement.ID
	}
	p.MarkPicked(movementID)
	if err := s.sessions.SavePick(ctx, p); err != nil {
		s.logger.WithSession(p.ID).WithError(err).Error().Msg("pick committed but session not saved")
	}

	if movement == nil {
		s.logger.WithSession(p.ID).Info().Str("system_code", p.ItemCode).Msg("item already removed, commit is a no-op")
		return p, nil
	}

	s.logger.WithSession(p.ID).Info().
		Str("system_code", item.SystemCode).
		Str("location_code", code).
		Str("location_load", load.String()).
		Str("operator", operator).
		Msg("item picked")

	s.publisher.PublishItemPicked(ctx, item, code, load, movement)
	return p, nil
}

func (s *PlacementService) stepPick(ctx context.Context, id string, step func(*workflow.Pick) error) (*workflow.Pick, error) {
	p, err := s.sessions.GetPick(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := step(p); err != nil {
		return nil, err
	}
	if err := s.sessions.SavePick(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
