// Package memory is an in-process Store with the same optimistic
// concurrency contract as the PostgreSQL store. Transactions buffer their
// writes and validate the versions they read when they commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/pkg/errors"
)

// Store keeps committed state in maps guarded by one RWMutex. The mutex is
// held only for copying and for validating a commit, never across a
// caller's transaction.
type Store struct {
	mu        sync.RWMutex
	locations map[string]domain.Location
	items     map[string]domain.Item
	counters  map[string]domain.CategoryCounter
	movements []domain.Movement
	requests  map[string]int
	now       func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		locations: make(map[string]domain.Location),
		items:     make(map[string]domain.Item),
		counters:  make(map[string]domain.CategoryCounter),
		requests:  make(map[string]int),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Catalog

func (s *Store) ListAvailable(ctx context.Context, minWeight decimal.Decimal) ([]*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Location
	for _, loc := range s.locations {
		if !loc.Selectable() || !loc.Fits(minWeight) {
			continue
		}
		l := loc
		out = append(out, &l)
	}
	sortLocations(out)
	return out, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		l := loc
		out = append(out, &l)
	}
	sortLocations(out)
	return out, nil
}

func (s *Store) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[code]
	if !ok {
		return nil, domain.LocationNotFound(code)
	}
	return &loc, nil
}

// UpsertLocation stores geometry and flags. Current weight and version of an
// existing slot are preserved.
func (s *Store) UpsertLocation(ctx context.Context, loc *domain.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next := *loc
	if existing, ok := s.locations[loc.Code]; ok {
		if next.Bounded() && existing.CurrentWeight.GreaterThan(next.MaxWeight.Decimal) {
			return errors.Conflict("location capacity exceeded")
		}
		next.CurrentWeight = existing.CurrentWeight
		next.Version = existing.Version
		next.CreatedAt = existing.CreatedAt
	} else {
		next.CurrentWeight = decimal.Zero
		next.Version = 1
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	s.locations[loc.Code] = next

	*loc = next
	return nil
}

func (s *Store) SetLocationVerified(ctx context.Context, code string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.locations[code]
	if !ok {
		return domain.LocationNotFound(code)
	}
	loc.Verified = verified
	loc.UpdatedAt = s.now()
	s.locations[code] = loc
	return nil
}

// Items

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.SystemCode]; exists {
		return errors.Conflict("an item with this system code already exists")
	}
	now := s.now()
	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.SystemCode] = *item
	return nil
}

func (s *Store) GetItem(ctx context.Context, systemCode string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[systemCode]
	if !ok {
		return nil, domain.ItemNotFound(systemCode)
	}
	return &item, nil
}

func (s *Store) ListMovements(ctx context.Context, itemID string) ([]*domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Movement
	for _, m := range s.movements {
		if m.ItemID != nil && *m.ItemID == itemID {
			mv := m
			out = append(out, &mv)
		}
	}
	return out, nil
}

// Movements returns every committed movement in append order.
func (s *Store) Movements() []domain.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Movement(nil), s.movements...)
}

// Counters

func (s *Store) GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counters[category]
	if !ok {
		return nil, domain.CounterNotFound(category)
	}
	return &c, nil
}

func (s *Store) EnsureCounter(ctx context.Context, category string, maxQuantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counters[category]; ok {
		return nil
	}
	s.counters[category] = domain.CategoryCounter{
		Category:    category,
		MaxQuantity: maxQuantity,
		Version:     1,
		UpdatedAt:   s.now(),
	}
	return nil
}

// WithinTx runs fn against a buffered view and commits its writes if no
// record it wrote has changed since it was read.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		store:     s,
		locations: make(map[string]*pending[domain.Location]),
		items:     make(map[string]*pending[domain.Item]),
		counters:  make(map[string]*pending[domain.CategoryCounter]),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]domain.Location, len(t.locations))
	for code, p := range t.locations {
		current := s.locations[code]
		if current.Version != p.expected {
			return domain.ErrConcurrentConflict
		}
		// Only the load is the transaction's to write; geometry and flags
		// may have changed underneath it.
		current.CurrentWeight = p.value.CurrentWeight
		current.Version = p.value.Version
		current.UpdatedAt = p.value.UpdatedAt
		if rem, ok := current.Remaining(); ok && rem.IsNegative() {
			return domain.ErrConcurrentConflict
		}
		merged[code] = current
	}
	for code, p := range t.items {
		if s.items[code].Version != p.expected {
			return domain.ErrConcurrentConflict
		}
	}
	for cat, p := range t.counters {
		if s.counters[cat].Version != p.expected {
			return domain.ErrConcurrentConflict
		}
	}
	for _, m := range t.movements {
		if m.RequestID == nil {
			continue
		}
		if _, dup := s.requests[*m.RequestID]; dup {
			return domain.ErrConcurrentConflict
		}
	}

	for code, loc := range merged {
		s.locations[code] = loc
	}
	for code, p := range t.items {
		s.items[code] = p.value
	}
	for cat, p := range t.counters {
		s.counters[cat] = p.value
	}
	for _, m := range t.movements {
		if m.RequestID != nil {
			s.requests[*m.RequestID] = len(s.movements)
		}
		s.movements = append(s.movements, m)
	}
	return nil
}

func sortLocations(locs []*domain.Location) {
	sort.Slice(locs, func(i, j int) bool { return locs[i].Code < locs[j].Code })
}
