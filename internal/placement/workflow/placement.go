// Package workflow holds the placement and pick state machines. Sessions
// are plain values: transitions validate and mutate the session and never
// touch shared warehouse state. Only a commit in the service layer does.
package workflow

import (
	"time"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// PlacementState is a step of the placement workflow.
type PlacementState string

const (
	PlacementCreated           PlacementState = "created"
	PlacementSuggested         PlacementState = "suggested"
	PlacementManualSelection   PlacementState = "manual_selection"
	PlacementLocationConfirmed PlacementState = "location_confirmed"
	PlacementItemConfirmed     PlacementState = "item_confirmed"
	PlacementPlaced            PlacementState = "placed"
	PlacementCancelled         PlacementState = "cancelled"
)

// SelectionMode records how the target location was chosen.
type SelectionMode string

const (
	SelectionSuggested SelectionMode = "suggested"
	SelectionManual    SelectionMode = "manual"
)

// Placement is one operator's attempt to store one pending item.
type Placement struct {
	ID                  string         `json:"id"`
	ItemCode            string         `json:"item_code"`
	State               PlacementState `json:"state"`
	SuggestedLocation   string         `json:"suggested_location,omitempty"`
	ConfirmedLocation   string         `json:"confirmed_location,omitempty"`
	SelectionMode       SelectionMode  `json:"selection_mode,omitempty"`
	RequireLocationScan bool           `json:"require_location_scan"`
	LocationScanned     bool           `json:"location_scanned"`
	LastError           string         `json:"last_error,omitempty"`
	MovementID          string         `json:"movement_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NewPlacement starts a session in Created.
func NewPlacement(id, itemCode string, requireLocationScan bool) *Placement {
	now := time.Now().UTC()
	return &Placement{
		ID:                  id,
		ItemCode:            itemCode,
		State:               PlacementCreated,
		RequireLocationScan: requireLocationScan,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Suggest records the selector's choice. An empty code means no suitable
// location and routes the session to manual selection.
func (p *Placement) Suggest(code string) error {
	if p.State != PlacementCreated {
		return p.invalid("suggest")
	}
	p.offer(code)
	return nil
}

// Accept confirms the suggested location.
func (p *Placement) Accept() error {
	if p.State != PlacementSuggested {
		return p.invalid("accept suggestion")
	}
	p.confirm(p.SuggestedLocation, SelectionSuggested)
	return nil
}

// Reject discards the suggestion and hands control to the operator.
func (p *Placement) Reject() error {
	if p.State != PlacementSuggested {
		return p.invalid("reject suggestion")
	}
	p.SuggestedLocation = ""
	p.transition(PlacementManualSelection)
	return nil
}

// SelectManual confirms an operator-picked location. Eligibility is
// checked by the caller against the catalog.
func (p *Placement) SelectManual(code string) error {
	if p.State != PlacementManualSelection {
		return p.invalid("select location")
	}
	p.confirm(code, SelectionManual)
	return nil
}

// ScanLocation checks the physical slot label. A mismatch leaves the
// session untouched.
func (p *Placement) ScanLocation(scanned string) error {
	if p.State != PlacementLocationConfirmed {
		return p.invalid("scan location")
	}
	if scanned != p.ConfirmedLocation {
		return domain.LocationMismatch(p.ConfirmedLocation, scanned)
	}
	p.LocationScanned = true
	p.touch()
	return nil
}

// ScanItem checks the item label and moves to ItemConfirmed. When a
// location scan is required it must have happened first.
func (p *Placement) ScanItem(scanned string) error {
	if p.State != PlacementLocationConfirmed {
		return p.invalid("scan item")
	}
	if p.RequireLocationScan && !p.LocationScanned {
		return domain.InvalidTransition("scan item before location scan", string(p.State))
	}
	if scanned != p.ItemCode {
		return domain.ItemMismatch(p.ItemCode, scanned)
	}
	p.transition(PlacementItemConfirmed)
	return nil
}

// ReadyToCommit reports whether the session may be committed.
func (p *Placement) ReadyToCommit() error {
	if p.State != PlacementItemConfirmed {
		return p.invalid("commit placement")
	}
	return nil
}

// MarkPlaced records a successful commit.
func (p *Placement) MarkPlaced(movementID string) {
	p.MovementID = movementID
	p.LastError = ""
	p.transition(PlacementPlaced)
}

// RevertAfterCapacity sends a session whose commit hit a full slot back to
// the choice step. A fresh suggestion is offered when one exists.
func (p *Placement) RevertAfterCapacity(freshSuggestion string, cause error) {
	p.ConfirmedLocation = ""
	p.SelectionMode = ""
	p.LocationScanned = false
	if cause != nil {
		p.LastError = cause.Error()
	}
	p.offer(freshSuggestion)
}

// Cancel abandons the session. Committed sessions cannot be cancelled.
func (p *Placement) Cancel() error {
	if p.Terminal() {
		return p.invalid("cancel placement")
	}
	p.transition(PlacementCancelled)
	return nil
}

// Terminal reports whether no further transition is possible.
func (p *Placement) Terminal() bool {
	return p.State == PlacementPlaced || p.State == PlacementCancelled
}

func (p *Placement) offer(code string) {
	p.SuggestedLocation = code
	if code == "" {
		p.transition(PlacementManualSelection)
		return
	}
	p.transition(PlacementSuggested)
}

func (p *Placement) confirm(code string, mode SelectionMode) {
	p.ConfirmedLocation = code
	p.SelectionMode = mode
	p.LocationScanned = false
	p.transition(PlacementLocationConfirmed)
}

func (p *Placement) transition(to PlacementState) {
	p.State = to
	p.touch()
}

func (p *Placement) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *Placement) invalid(op string) error {
	return domain.InvalidTransition(op, string(p.State))
}
