// Package service drives the placement, pick and kanban workflows. Session
// steps only touch the caller's own session; commits go through the ledger
// and are the only writers of shared warehouse state.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/ledger"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/selector"
	"github.com/rackslot/rackslot-backend/internal/placement/session"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

// EventPublisher receives committed changes. Implementations must not fail
// the caller; see events.PlacementEventPublisher.
type EventPublisher interface {
	PublishItemPlaced(ctx context.Context, item *domain.Item, loc *domain.Location, m *domain.Movement, selectionMode string)
	PublishItemPicked(ctx context.Context, item *domain.Item, locationCode string, load decimal.Decimal, m *domain.Movement)
	PublishCounterAdjusted(ctx context.Context, c *domain.CategoryCounter, m *domain.Movement)
}

// PlacementService handles placement business logic
type PlacementService struct {
	store      repository.Store
	ledger     *ledger.Ledger
	selector   *selector.Selector
	sessions   session.Store
	categories *domain.CategoryRegistry
	publisher  EventPublisher
	codes      *domain.SystemCodeGenerator
	workflow   config.WorkflowConfig
	logger     *logger.Logger
}

// NewPlacementService creates a new placement service. publisher may be nil.
func NewPlacementService(
	store repository.Store,
	ledger *ledger.Ledger,
	selector *selector.Selector,
	sessions session.Store,
	categories *domain.CategoryRegistry,
	publisher EventPublisher,
	workflow config.WorkflowConfig,
	log *logger.Logger,
) *PlacementService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	codes := domain.NewSystemCodeGenerator(workflow.NodeID)
	log = log.WithComponent("placement")
	log.Debug().Str("node", codes.Node()).Msg("system code generator ready")

	return &PlacementService{
		store:      store,
		ledger:     ledger,
		selector:   selector,
		sessions:   sessions,
		categories: categories,
		publisher:  publisher,
		codes:      codes,
		workflow:   workflow,
		logger:     log,
	}
}

// CreateItemInput is a goods-in registration.
type CreateItemInput struct {
	SKU         string
	Description string
	Weight      decimal.Decimal
	Category    string
	Metadata    domain.Metadata
}

// Item operations

// CreateItem registers a pending item under a fresh system code.
func (s *PlacementService) CreateItem(ctx context.Context, in CreateItemInput) (*domain.Item, error) {
	category, err := s.categories.Lookup(in.Category)
	if err != nil {
		return nil, err
	}

	item, err := domain.NewItem(s.codes.Next(), in.SKU, in.Description, in.Weight, category, in.Metadata)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("system_code", item.SystemCode).
		Str("sku", item.SKU).
		Str("category", item.Category).
		Str("weight", item.Weight.String()).
		Msg("item registered")

	return item, nil
}

// GetItem gets an item by system code
func (s *PlacementService) GetItem(ctx context.Context, systemCode string) (*domain.Item, error) {
	return s.store.GetItem(ctx, systemCode)
}

// ListItemMovements returns the movement history of an item, oldest first.
func (s *PlacementService) ListItemMovements(ctx context.Context, systemCode string) ([]*domain.Movement, error) {
	if _, err := s.store.GetItem(ctx, systemCode); err != nil {
		return nil, err
	}
	return s.store.ListMovements(ctx, systemCode)
}

// Location operations

// ListAvailableLocations returns selectable slots with room for minWeight.
func (s *PlacementService) ListAvailableLocations(ctx context.Context, minWeight decimal.Decimal) ([]*domain.Location, error) {
	return s.store.ListAvailable(ctx, minWeight)
}

// GetLocation gets a location by code
func (s *PlacementService) GetLocation(ctx context.Context, code string) (*domain.Location, error) {
	return s.store.GetLocation(ctx, code)
}

// Categories returns the category registry in code order.
func (s *PlacementService) Categories() []domain.Category {
	return s.categories.All()
}

// suggest returns the best slot for item, or "" when none qualifies.
func (s *PlacementService) suggest(ctx context.Context, item *domain.Item) (string, error) {
	req, err := s.selectionRequest(item)
	if err != nil {
		return "", err
	}

	candidates, err := s.store.ListAvailable(ctx, item.Weight)
	if err != nil {
		return "", err
	}

	loc, ok := s.selector.Select(candidates, req)
	if !ok {
		s.logger.Info().
			Str("system_code", item.SystemCode).
			Str("weight", item.Weight.String()).
			Msg("no suitable location")
		return "", nil
	}
	return loc.Code, nil
}

func (s *PlacementService) selectionRequest(item *domain.Item) (selector.Request, error) {
	category, err := s.categories.Lookup(item.Category)
	if err != nil {
		return selector.Request{}, err
	}
	return selector.Request{Weight: item.Weight, GroundRequired: category.GroundRequired}, nil
}

func newSessionID() string {
	return uuid.New().String()
}

type noopPublisher struct{}

func (noopPublisher) PublishItemPlaced(context.Context, *domain.Item, *domain.Location, *domain.Movement, string) {
}

func (noopPublisher) PublishItemPicked(context.Context, *domain.Item, string, decimal.Decimal, *domain.Movement) {
}

func (noopPublisher) PublishCounterAdjusted(context.Context, *domain.CategoryCounter, *domain.Movement) {
}
