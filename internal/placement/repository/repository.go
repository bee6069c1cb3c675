// Package repository defines persistence for locations, items, movements
// and kanban counters.
//
// Reads outside a transaction see committed state. Writes happen only
// inside Store.WithinTx; every conditional write takes the version the
// caller read and fails with domain.ErrConcurrentConflict when the record
// moved on in the meantime.
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
)

// Catalog is the read side of the location catalog plus geometry upkeep.
// Geometry writes never touch current weight.
type Catalog interface {
	ListAvailable(ctx context.Context, minWeight decimal.Decimal) ([]*domain.Location, error)
	ListLocations(ctx context.Context) ([]*domain.Location, error)
	GetLocation(ctx context.Context, code string) (*domain.Location, error)
	UpsertLocation(ctx context.Context, loc *domain.Location) error
	SetLocationVerified(ctx context.Context, code string, verified bool) error
}

// Items is the read side of items and their movement history.
type Items interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, systemCode string) (*domain.Item, error)
	ListMovements(ctx context.Context, itemID string) ([]*domain.Movement, error)
}

// Counters is the read side of kanban counters.
type Counters interface {
	GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error)
	// EnsureCounter creates the counter at zero if it does not exist.
	EnsureCounter(ctx context.Context, category string, maxQuantity int) error
}

// Tx is the unit of work handed to WithinTx callbacks.
type Tx interface {
	GetLocation(ctx context.Context, code string) (*domain.Location, error)
	UpdateLocationWeight(ctx context.Context, code string, weight decimal.Decimal, expectedVersion int64) error

	GetItem(ctx context.Context, systemCode string) (*domain.Item, error)
	UpdateItem(ctx context.Context, item *domain.Item, expectedVersion int64) error

	GetCounter(ctx context.Context, category string) (*domain.CategoryCounter, error)
	UpdateCounterQuantity(ctx context.Context, category string, quantity int, expectedVersion int64) error

	AppendMovement(ctx context.Context, m *domain.Movement) error
	// FindMovementByRequestID returns nil, nil when no movement carries the id.
	FindMovementByRequestID(ctx context.Context, requestID string) (*domain.Movement, error)
}

// Store is the full persistence surface of the placement service.
type Store interface {
	Catalog
	Items
	Counters

	// WithinTx runs fn atomically. If fn returns an error nothing it wrote
	// is visible. A conflict detected at commit is returned as
	// domain.ErrConcurrentConflict.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
