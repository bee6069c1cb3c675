package workflow

import (
	"time"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// PickState is a step of the pick workflow.
type PickState string

const (
	PickSelected    PickState = "selected"
	PickItemScanned PickState = "item_scanned"
	PickPicked      PickState = "picked"
	PickCancelled   PickState = "cancelled"
)

// Pick is one operator's attempt to take one placed item out of its slot.
type Pick struct {
	ID           string    `json:"id"`
	ItemCode     string    `json:"item_code"`
	LocationCode string    `json:"location_code"`
	State        PickState `json:"state"`
	MovementID   string    `json:"movement_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewPick starts a pick of a placed item.
func NewPick(id string, item *domain.Item) (*Pick, error) {
	if item.Status != domain.ItemPlaced {
		return nil, domain.InvalidTransition("pick item", string(item.Status))
	}
	now := time.Now().UTC()
	return &Pick{
		ID:           id,
		ItemCode:     item.SystemCode,
		LocationCode: item.Location(),
		State:        PickSelected,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ScanItem checks the item label. A mismatch leaves the session untouched.
func (p *Pick) ScanItem(scanned string) error {
	if p.State != PickSelected {
		return p.invalid("scan item")
	}
	if scanned != p.ItemCode {
		return domain.ItemMismatch(p.ItemCode, scanned)
	}
	p.transition(PickItemScanned)
	return nil
}

// ReadyToCommit reports whether the session may be committed.
func (p *Pick) ReadyToCommit() error {
	if p.State != PickItemScanned {
		return p.invalid("commit pick")
	}
	return nil
}

// MarkPicked records a successful commit.
func (p *Pick) MarkPicked(movementID string) {
	p.MovementID = movementID
	p.transition(PickPicked)
}

// Cancel abandons the pick. The item stays placed.
func (p *Pick) Cancel() error {
	if p.Terminal() {
		return p.invalid("cancel pick")
	}
	p.transition(PickCancelled)
	return nil
}

// Terminal reports whether no further transition is possible.
func (p *Pick) Terminal() bool {
	return p.State == PickPicked || p.State == PickCancelled
}

func (p *Pick) transition(to PickState) {
	p.State = to
	p.UpdatedAt = time.Now().UTC()
}

func (p *Pick) invalid(op string) error {
	return domain.InvalidTransition(op, string(p.State))
}
