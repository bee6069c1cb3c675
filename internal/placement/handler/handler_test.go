package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/events"
	"github.com/rackslot/rackslot-backend/internal/placement/handler"
	"github.com/rackslot/rackslot-backend/internal/placement/ledger"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/memory"
	"github.com/rackslot/rackslot-backend/internal/placement/selector"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/session"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/httputil"
	"github.com/rackslot/rackslot-backend/pkg/logger"
	"github.com/rackslot/rackslot-backend/pkg/messaging"
	"github.com/rackslot/rackslot-backend/pkg/testutil"
)

const base = "/api/v1/placement"

type api struct {
	router    http.Handler
	store     *memory.Store
	published *testutil.MockPublisher
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := logger.NewNop()
	store := memory.New()
	published := testutil.NewMockPublisher()

	svc := service.NewPlacementService(
		store,
		ledger.New(store, config.LedgerConfig{MaxRetries: 10}, log),
		selector.New(selector.Policy{GroundFirst: true}),
		session.NewMemoryStore(),
		domain.DefaultCategories(),
		events.New(published, log),
		config.WorkflowConfig{RequireLocationScan: true},
		log,
	)
	require.NoError(t, svc.EnsureCounters(context.Background()))

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(httputil.Operator)
	r.Mount(base, handler.New(svc, log).Routes())

	return &api{router: r, store: store, published: published}
}

func (a *api) location(t *testing.T, row, bay, level string, opts ...func(*domain.Location)) {
	t.Helper()
	loc := testutil.NewFixtureFactory().Location(row, bay, level, opts...)
	require.NoError(t, a.store.UpsertLocation(context.Background(), loc))
}

func (a *api) createItem(t *testing.T, weight string) domain.Item {
	t.Helper()
	req := testutil.NewHTTPRequest(http.MethodPost, base+"/items", map[string]interface{}{
		"sku":      "SKU-42",
		"weight":   weight,
		"category": "general",
	})
	rr := testutil.ExecuteRequest(a.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var item domain.Item
	testutil.ParseData(t, rr, &item)
	return item
}

func (a *api) placement(t *testing.T, method, path string, body interface{}, status int) workflow.Placement {
	t.Helper()
	req := testutil.WithOperator(testutil.NewHTTPRequest(method, base+path, body), "op-7")
	rr := testutil.ExecuteRequest(a.router, req)
	testutil.AssertStatus(t, rr, status)

	var p workflow.Placement
	if status < 300 {
		testutil.ParseData(t, rr, &p)
	}
	return p
}

func TestPlacementFlow(t *testing.T) {
	a := newAPI(t)
	a.location(t, "A", "1", "1", testutil.WithMaxWeight("100"))

	item := a.createItem(t, "40")
	assert.Equal(t, domain.ItemPending, item.Status)
	assert.NotEmpty(t, item.SystemCode)

	p := a.placement(t, http.MethodPost, "/placements", map[string]string{"item_code": item.SystemCode}, http.StatusCreated)
	assert.Equal(t, workflow.PlacementSuggested, p.State)
	assert.Equal(t, "A1-1", p.SuggestedLocation)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/accept", nil, http.StatusOK)
	assert.Equal(t, workflow.PlacementLocationConfirmed, p.State)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/scan-location", map[string]string{"code": "A1-1"}, http.StatusOK)
	assert.True(t, p.LocationScanned)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/scan-item", map[string]string{"code": item.SystemCode}, http.StatusOK)
	assert.Equal(t, workflow.PlacementItemConfirmed, p.State)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/commit", nil, http.StatusOK)
	assert.Equal(t, workflow.PlacementPlaced, p.State)
	assert.NotEmpty(t, p.MovementID)

	rr := testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/items/"+item.SystemCode, nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var placed domain.Item
	testutil.ParseData(t, rr, &placed)
	assert.Equal(t, domain.ItemPlaced, placed.Status)
	assert.Equal(t, "A1-1", placed.Location())

	rr = testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/items/"+item.SystemCode+"/movements", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var movements []domain.Movement
	testutil.ParseData(t, rr, &movements)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementIn, movements[0].Type)
	assert.Equal(t, "op-7", movements[0].Operator)

	rr = testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/locations/A1-1", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"current_weight":"40"`)

	a.published.AssertEventPublished(t, messaging.EventItemPlaced)
}

func TestPlacementErrors(t *testing.T) {
	a := newAPI(t)
	a.location(t, "A", "1", "1", testutil.WithMaxWeight("100"))
	item := a.createItem(t, "10")

	p := a.placement(t, http.MethodPost, "/placements", map[string]string{"item_code": item.SystemCode}, http.StatusCreated)
	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/accept", nil, http.StatusOK)

	t.Run("location mismatch", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodPost, base+"/placements/"+p.ID+"/scan-location", map[string]string{"code": "B9-9"})
		rr := testutil.ExecuteRequest(a.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		testutil.AssertBodyContains(t, rr, "LOCATION_MISMATCH")
	})

	t.Run("commit before scans", func(t *testing.T) {
		a.placement(t, http.MethodPost, "/placements/"+p.ID+"/commit", nil, http.StatusConflict)
	})

	t.Run("commit needs an operator", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodPost, base+"/placements/"+p.ID+"/commit", nil)
		rr := testutil.ExecuteRequest(a.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertBodyContains(t, rr, httputil.OperatorHeader)
	})

	t.Run("missing body field", func(t *testing.T) {
		a.placement(t, http.MethodPost, "/placements/"+p.ID+"/scan-item", map[string]string{}, http.StatusBadRequest)
	})

	t.Run("unknown session", func(t *testing.T) {
		a.placement(t, http.MethodGet, "/placements/does-not-exist", nil, http.StatusNotFound)
	})

	t.Run("unknown item", func(t *testing.T) {
		a.placement(t, http.MethodPost, "/placements", map[string]string{"item_code": "SYS-NOPE"}, http.StatusNotFound)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := testutil.NewHTTPRequest(http.MethodPost, base+"/placements", nil)
		rr := testutil.ExecuteRequest(a.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestPlacementManualSelection(t *testing.T) {
	a := newAPI(t)
	a.location(t, "A", "1", "1", testutil.WithMaxWeight("100"))
	a.location(t, "B", "1", "1", testutil.WithMaxWeight("20"))
	item := a.createItem(t, "50")

	p := a.placement(t, http.MethodPost, "/placements", map[string]string{"item_code": item.SystemCode}, http.StatusCreated)
	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/reject", nil, http.StatusOK)
	assert.Equal(t, workflow.PlacementManualSelection, p.State)

	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/select", map[string]string{"location_code": "B1-1"}, http.StatusConflict)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/select", map[string]string{"location_code": "A1-1"}, http.StatusOK)
	assert.Equal(t, workflow.SelectionManual, p.SelectionMode)

	p = a.placement(t, http.MethodPost, "/placements/"+p.ID+"/cancel", nil, http.StatusOK)
	assert.Equal(t, workflow.PlacementCancelled, p.State)
}

func TestListAvailableLocations(t *testing.T) {
	a := newAPI(t)
	a.location(t, "A", "1", "1", testutil.WithMaxWeight("10"))
	a.location(t, "A", "1", "2", testutil.WithMaxWeight("100"))
	a.location(t, "A", "1", "3", testutil.Unavailable())

	rr := testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/locations?min_weight=20", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var locations []domain.Location
	testutil.ParseData(t, rr, &locations)
	require.Len(t, locations, 1)
	assert.Equal(t, "A1-2", locations[0].Code)

	rr = testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/locations?min_weight=heavy", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	rr = testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/locations/Z9-9", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestPickFlow(t *testing.T) {
	a := newAPI(t)
	a.location(t, "A", "1", "1", testutil.WithMaxWeight("100"))
	item := a.createItem(t, "25")

	p := a.placement(t, http.MethodPost, "/placements", map[string]string{"item_code": item.SystemCode}, http.StatusCreated)
	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/accept", nil, http.StatusOK)
	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/scan-location", map[string]string{"code": "A1-1"}, http.StatusOK)
	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/scan-item", map[string]string{"code": item.SystemCode}, http.StatusOK)
	a.placement(t, http.MethodPost, "/placements/"+p.ID+"/commit", nil, http.StatusOK)

	pick := func(method, path string, body interface{}, status int) workflow.Pick {
		t.Helper()
		req := testutil.WithOperator(testutil.NewHTTPRequest(method, base+path, body), "op-7")
		rr := testutil.ExecuteRequest(a.router, req)
		testutil.AssertStatus(t, rr, status)
		var out workflow.Pick
		if status < 300 {
			testutil.ParseData(t, rr, &out)
		}
		return out
	}

	s := pick(http.MethodPost, "/picks", map[string]string{"item_code": item.SystemCode}, http.StatusCreated)
	assert.Equal(t, "A1-1", s.LocationCode)

	pick(http.MethodPost, "/picks/"+s.ID+"/scan-item", map[string]string{"code": "SYS-OTHER"}, http.StatusUnprocessableEntity)
	pick(http.MethodPost, "/picks/"+s.ID+"/scan-item", map[string]string{"code": item.SystemCode}, http.StatusOK)

	s = pick(http.MethodPost, "/picks/"+s.ID+"/commit", nil, http.StatusOK)
	assert.Equal(t, workflow.PickPicked, s.State)

	loc, err := a.store.GetLocation(context.Background(), "A1-1")
	require.NoError(t, err)
	assert.True(t, loc.CurrentWeight.IsZero())

	a.published.AssertEventPublished(t, messaging.EventItemPicked)
}

func TestCounters(t *testing.T) {
	a := newAPI(t)

	adjust := func(direction string, body interface{}, status int) service.CounterAdjustment {
		t.Helper()
		req := testutil.WithOperator(testutil.NewHTTPRequest(http.MethodPost, base+"/counters/fasteners/"+direction, body), "op-7")
		rr := testutil.ExecuteRequest(a.router, req)
		testutil.AssertStatus(t, rr, status)
		var out service.CounterAdjustment
		if status < 300 {
			testutil.ParseData(t, rr, &out)
		}
		return out
	}

	res := adjust("in", map[string]interface{}{"quantity": 120, "request_id": "r-1"}, http.StatusCreated)
	assert.Equal(t, 120, res.Counter.CurrentQuantity)
	assert.False(t, res.Replayed)

	res = adjust("in", map[string]interface{}{"quantity": 120, "request_id": "r-1"}, http.StatusOK)
	assert.True(t, res.Replayed)
	assert.Equal(t, 120, res.Counter.CurrentQuantity)

	res = adjust("out", map[string]interface{}{"quantity": 20}, http.StatusCreated)
	assert.Equal(t, 100, res.Counter.CurrentQuantity)

	adjust("out", map[string]interface{}{"quantity": 101}, http.StatusConflict)
	adjust("in", map[string]interface{}{"quantity": 401}, http.StatusConflict)
	adjust("in", map[string]interface{}{"quantity": 0}, http.StatusBadRequest)
	adjust("out", map[string]interface{}{"quantity": 120, "request_id": "r-1"}, http.StatusConflict)

	rr := testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/counters/fasteners", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var counter domain.CategoryCounter
	testutil.ParseData(t, rr, &counter)
	assert.Equal(t, 100, counter.CurrentQuantity)
	assert.Equal(t, 500, counter.MaxQuantity)

	rr = testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/counters/general", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	assert.Len(t, a.published.EventsOfType(messaging.EventCounterAdjusted), 2)
}

func TestCategories(t *testing.T) {
	a := newAPI(t)
	rr := testutil.ExecuteRequest(a.router, testutil.NewHTTPRequest(http.MethodGet, base+"/categories", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"steel-coil"`)
	testutil.AssertBodyContains(t, rr, `"total":5`)
}
