package service

import (
	"context"
	"errors"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/selector"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
)

// Placement workflow

// StartPlacement opens a session for a pending item and offers the best
// slot. With no suitable slot the session starts in manual selection.
func (s *PlacementService) StartPlacement(ctx context.Context, itemCode string) (*workflow.Placement, error) {
	item, err := s.store.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.ItemPending {
		return nil, domain.InvalidTransition("start placement", string(item.Status))
	}

	suggestion, err := s.suggest(ctx, item)
	if err != nil {
		return nil, err
	}

	p := workflow.NewPlacement(newSessionID(), item.SystemCode, s.workflow.RequireLocationScan)
	if err := p.Suggest(suggestion); err != nil {
		return nil, err
	}
	if err := s.sessions.SavePlacement(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithSession(p.ID).Debug().
		Str("system_code", item.SystemCode).
		Str("suggested_location", suggestion).
		Msg("placement started")

	return p, nil
}

// GetPlacement loads a placement session
func (s *PlacementService) GetPlacement(ctx context.Context, id string) (*workflow.Placement, error) {
	return s.sessions.GetPlacement(ctx, id)
}

// AcceptSuggestion confirms the suggested slot.
func (s *PlacementService) AcceptSuggestion(ctx context.Context, id string) (*workflow.Placement, error) {
	return s.stepPlacement(ctx, id, (*workflow.Placement).Accept)
}

// RejectSuggestion drops the suggestion and switches to manual selection.
func (s *PlacementService) RejectSuggestion(ctx context.Context, id string) (*workflow.Placement, error) {
	return s.stepPlacement(ctx, id, (*workflow.Placement).Reject)
}

// SelectLocation confirms an operator-chosen slot. The slot must pass the
// same eligibility checks the selector applies.
func (s *PlacementService) SelectLocation(ctx context.Context, id, code string) (*workflow.Placement, error) {
	p, err := s.sessions.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State != workflow.PlacementManualSelection {
		return nil, domain.InvalidTransition("select location", string(p.State))
	}

	item, err := s.store.GetItem(ctx, p.ItemCode)
	if err != nil {
		return nil, err
	}
	loc, err := s.store.GetLocation(ctx, code)
	if err != nil {
		return nil, err
	}
	req, err := s.selectionRequest(item)
	if err != nil {
		return nil, err
	}
	if err := eligible(loc, req); err != nil {
		return nil, err
	}

	if err := p.SelectManual(loc.Code); err != nil {
		return nil, err
	}
	if err := s.sessions.SavePlacement(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ScanLocation checks the scanned slot label against the confirmed slot.
func (s *PlacementService) ScanLocation(ctx context.Context, id, scanned string) (*workflow.Placement, error) {
	return s.stepPlacement(ctx, id, func(p *workflow.Placement) error {
		return p.ScanLocation(scanned)
	})
}

// ScanItem checks the scanned item label against the session's item.
func (s *PlacementService) ScanItem(ctx context.Context, id, scanned string) (*workflow.Placement, error) {
	return s.stepPlacement(ctx, id, func(p *workflow.Placement) error {
		return p.ScanItem(scanned)
	})
}

// CancelPlacement abandons the session. Nothing was written, so nothing is
// undone.
func (s *PlacementService) CancelPlacement(ctx context.Context, id string) (*workflow.Placement, error) {
	return s.stepPlacement(ctx, id, (*workflow.Placement).Cancel)
}

// CommitPlacement stores the item in the confirmed slot: the slot load,
// the item state and one IN movement change in one transaction. A slot
// that can no longer take the item sends the session back to selection
// with a fresh suggestion. Committing a placed session again is a no-op.
func (s *PlacementService) CommitPlacement(ctx context.Context, id, operator string) (*workflow.Placement, error) {
	p, err := s.sessions.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State == workflow.PlacementPlaced {
		return p, nil
	}
	if err := p.ReadyToCommit(); err != nil {
		return nil, err
	}

	code := p.ConfirmedLocation
	var (
		item     *domain.Item
		loc      *domain.Location
		movement *domain.Movement
	)
	err = s.ledger.Run(ctx, code, func(ctx context.Context, tx repository.Tx) error {
		item, loc, movement = nil, nil, nil

		current, err := tx.GetItem(ctx, p.ItemCode)
		if err != nil {
			return err
		}
		if current.Status == domain.ItemPlaced && current.Location() == code {
			return nil
		}
		if current.Status != domain.ItemPending {
			return domain.InvalidTransition("commit placement", string(current.Status))
		}

		target, err := tx.GetLocation(ctx, code)
		if err != nil {
			return err
		}
		if reason := notSelectable(target); reason != "" {
			return domain.LocationNotEligible(code, reason)
		}

		loc, err = s.ledger.ApplyWeightDeltaTx(ctx, tx, code, current.Weight)
		if err != nil {
			return err
		}

		expected := current.Version
		if err := current.Place(code); err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, current, expected); err != nil {
			return err
		}

		movement = domain.NewItemMovement(domain.MovementIn, current, code, operator, nil)
		if err := tx.AppendMovement(ctx, movement); err != nil {
			return err
		}
		item = current
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrLocationNotEligible) {
			return nil, s.revertPlacement(ctx, p, err)
		}
		return nil, err
	}

	mode := string(p.SelectionMode)
	movementID := ""
	if movement != nil {
		movementID = movement.ID
	}
	p.MarkPlaced(movementID)
	if err := s.sessions.SavePlacement(ctx, p); err != nil {
		s.logger.WithSession(p.ID).WithError(err).Error().Msg("placement committed but session not saved")
	}

	if movement == nil {
		s.logger.WithSession(p.ID).Info().Str("system_code", p.ItemCode).Msg("item already placed, commit is a no-op")
		return p, nil
	}

	s.logger.WithSession(p.ID).Info().
		Str("system_code", item.SystemCode).
		Str("location_code", code).
		Str("location_load", loc.CurrentWeight.String()).
		Str("operator", operator).
		Str("selection_mode", mode).
		Msg("item placed")

	s.publisher.PublishItemPlaced(ctx, item, loc, movement, mode)
	return p, nil
}

// revertPlacement sends a session whose slot refused the item back to
// selection and returns cause. Suggested sessions get a fresh suggestion;
// manual ones go back to manual selection.
func (s *PlacementService) revertPlacement(ctx context.Context, p *workflow.Placement, cause error) error {
	fresh := ""
	if p.SelectionMode == workflow.SelectionSuggested {
		item, err := s.store.GetItem(ctx, p.ItemCode)
		if err != nil {
			return err
		}
		if fresh, err = s.suggest(ctx, item); err != nil {
			return err
		}
	}

	s.logger.WithSession(p.ID).WithError(cause).Info().
		Str("location_code", p.ConfirmedLocation).
		Str("fresh_suggestion", fresh).
		Msg("placement rejected at commit, back to selection")

	p.RevertAfterCapacity(fresh, cause)
	if err := s.sessions.SavePlacement(ctx, p); err != nil {
		return err
	}
	return cause
}

// stepPlacement loads a session, applies one transition and saves it. A
// failed transition leaves the stored session untouched.
func (s *PlacementService) stepPlacement(ctx context.Context, id string, step func(*workflow.Placement) error) (*workflow.Placement, error) {
	p, err := s.sessions.GetPlacement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := step(p); err != nil {
		return nil, err
	}
	if err := s.sessions.SavePlacement(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// eligible maps a selector rejection to the matching domain error.
func eligible(loc *domain.Location, req selector.Request) error {
	reason := selector.Check(loc, req)
	if reason == "" {
		return nil
	}
	groundOK := !req.GroundRequired || loc.IsGround()
	if loc.Selectable() && groundOK && !loc.Fits(req.Weight) {
		remaining, _ := loc.Remaining()
		return domain.CapacityExceeded(loc.Code, req.Weight, remaining)
	}
	return domain.LocationNotEligible(loc.Code, reason)
}

func notSelectable(loc *domain.Location) string {
	switch {
	case !loc.Available:
		return "location is not available"
	case !loc.Verified:
		return "location is not verified"
	}
	return ""
}
