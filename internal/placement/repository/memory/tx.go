package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// pending is a buffered write. expected is the committed version the
// transaction first wrote against.
type pending[T any] struct {
	value    T
	expected int64
}

type tx struct {
	store     *Store
	locations map[string]*pending[domain.Location]
	items     map[string]*pending[domain.Item]
	counters  map[string]*pending[domain.CategoryCounter]
	movements []domain.Movement
}

func (t *tx) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	if p, ok := t.locations[code]; ok {
		loc := p.value
		return &loc, nil
	}
	return t.store.GetLocation(ctx, code)
}

func (t *tx) UpdateLocationWeight(ctx context.Context, code string, weight decimal.Decimal, expectedVersion int64) error {
	loc, err := t.GetLocation(ctx, code)
	if err != nil {
		return err
	}
	if loc.Version != expectedVersion {
		return domain.ErrConcurrentConflict
	}

	p, ok := t.locations[code]
	if !ok {
		p = &pending[domain.Location]{expected: expectedVersion}
		t.locations[code] = p
	}
	loc.CurrentWeight = weight
	loc.Version = expectedVersion + 1
	loc.UpdatedAt = t.store.now()
	p.value = *loc
	return nil
}

func (t *tx) GetItem(ctx context.Context, systemCode string) (*domain.Item, error) {
	if p, ok := t.items[systemCode]; ok {
		item := p.value
		return &item, nil
	}
	return t.store.GetItem(ctx, systemCode)
}

func (t *tx) UpdateItem(ctx context.Context, item *domain.Item, expectedVersion int64) error {
	current, err := t.GetItem(ctx, item.SystemCode)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return domain.ErrConcurrentConflict
	}

	p, ok := t.items[item.SystemCode]
	if !ok {
		p = &pending[domain.Item]{expected: expectedVersion}
		t.items[item.SystemCode] = p
	}
	next := *item
	next.Version = expectedVersion + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = t.store.now()
	p.value = next

	item.Version = next.Version
	item.UpdatedAt = next.UpdatedAt
	return nil
}

func (t *tx) GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error) {
	if p, ok := t.counters[category]; ok {
		c := p.value
		return &c, nil
	}
	return t.store.GetCounter(ctx, category)
}

func (t *tx) UpdateCounterQuantity(ctx context.Context, category string, quantity int, expectedVersion int64) error {
	c, err := t.GetCounter(ctx, category)
	if err != nil {
		return err
	}
	if c.Version != expectedVersion {
		return domain.ErrConcurrentConflict
	}

	p, ok := t.counters[category]
	if !ok {
		p = &pending[domain.CategoryCounter]{expected: expectedVersion}
		t.counters[category] = p
	}
	c.CurrentQuantity = quantity
	c.Version = expectedVersion + 1
	c.UpdatedAt = t.store.now()
	p.value = *c
	return nil
}

func (t *tx) AppendMovement(ctx context.Context, m *domain.Movement) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = t.store.now()
	}
	t.movements = append(t.movements, *m)
	return nil
}

func (t *tx) FindMovementByRequestID(ctx context.Context, requestID string) (*domain.Movement, error) {
	for i := range t.movements {
		if m := t.movements[i]; m.RequestID != nil && *m.RequestID == requestID {
			return &m, nil
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	idx, ok := t.store.requests[requestID]
	if !ok {
		return nil, nil
	}
	m := t.store.movements[idx]
	return &m, nil
}
