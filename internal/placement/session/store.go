// Package session persists workflow sessions between operator steps.
// Sessions are private to their operator; commits never read another
// session's state.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
)

// Store saves and loads placement and pick sessions.
type Store interface {
	SavePlacement(ctx context.Context, p *workflow.Placement) error
	GetPlacement(ctx context.Context, id string) (*workflow.Placement, error)
	SavePick(ctx context.Context, p *workflow.Pick) error
	GetPick(ctx context.Context, id string) (*workflow.Pick, error)
}

// kv is the byte-level backend shared by the memory and Redis stores.
type kv interface {
	put(ctx context.Context, key string, value []byte) error
	get(ctx context.Context, key string) ([]byte, bool, error)
}

const (
	placementPrefix = "rackslot:session:placement:"
	pickPrefix      = "rackslot:session:pick:"
)

// codec implements Store over any kv. Values are stored as JSON so a
// loaded session is always a private copy.
type codec struct {
	backend kv
}

func (c codec) SavePlacement(ctx context.Context, p *workflow.Placement) error {
	return c.save(ctx, placementPrefix+p.ID, p)
}

func (c codec) GetPlacement(ctx context.Context, id string) (*workflow.Placement, error) {
	var p workflow.Placement
	if err := c.load(ctx, placementPrefix+id, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c codec) SavePick(ctx context.Context, p *workflow.Pick) error {
	return c.save(ctx, pickPrefix+p.ID, p)
}

func (c codec) GetPick(ctx context.Context, id string) (*workflow.Pick, error) {
	var p workflow.Pick
	if err := c.load(ctx, pickPrefix+id, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c codec) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return c.backend.put(ctx, key, raw)
}

func (c codec) load(ctx context.Context, key, id string, v any) error {
	raw, ok, err := c.backend.get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return domain.SessionNotFound(id)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return nil
}
