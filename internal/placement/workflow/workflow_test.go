package workflow_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/workflow"
)

func TestPlacement_HappyPath(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)
	assert.Equal(t, workflow.PlacementCreated, p.State)

	require.NoError(t, p.Suggest("A1-1"))
	assert.Equal(t, workflow.PlacementSuggested, p.State)

	require.NoError(t, p.Accept())
	assert.Equal(t, workflow.PlacementLocationConfirmed, p.State)
	assert.Equal(t, "A1-1", p.ConfirmedLocation)
	assert.Equal(t, workflow.SelectionSuggested, p.SelectionMode)

	require.NoError(t, p.ScanLocation("A1-1"))
	require.NoError(t, p.ScanItem("SYS1"))
	assert.Equal(t, workflow.PlacementItemConfirmed, p.State)
	require.NoError(t, p.ReadyToCommit())

	p.MarkPlaced("m1")
	assert.Equal(t, workflow.PlacementPlaced, p.State)
	assert.True(t, p.Terminal())
	assert.ErrorIs(t, p.Cancel(), domain.ErrInvalidTransition)
}

func TestPlacement_ManualEscape(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", false)
	require.NoError(t, p.Suggest("A1-1"))
	require.NoError(t, p.Reject())
	assert.Equal(t, workflow.PlacementManualSelection, p.State)
	assert.Empty(t, p.SuggestedLocation)

	assert.ErrorIs(t, p.Accept(), domain.ErrInvalidTransition)

	require.NoError(t, p.SelectManual("B2-2"))
	assert.Equal(t, workflow.SelectionManual, p.SelectionMode)

	// Location scan is switched off for this session.
	require.NoError(t, p.ScanItem("SYS1"))
	assert.Equal(t, workflow.PlacementItemConfirmed, p.State)
}

func TestPlacement_ManualSelectionStillNeedsLocationScan(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)
	require.NoError(t, p.Suggest(""))
	require.NoError(t, p.SelectManual("B2-2"))

	assert.ErrorIs(t, p.ScanItem("SYS1"), domain.ErrInvalidTransition)
	assert.Equal(t, workflow.PlacementLocationConfirmed, p.State)

	require.NoError(t, p.ScanLocation("B2-2"))
	require.NoError(t, p.ScanItem("SYS1"))
	assert.Equal(t, workflow.PlacementItemConfirmed, p.State)
}

func TestPlacement_NoSuggestionGoesManual(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)
	require.NoError(t, p.Suggest(""))
	assert.Equal(t, workflow.PlacementManualSelection, p.State)
}

func TestPlacement_ScanMismatchKeepsState(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)
	require.NoError(t, p.Suggest("A1-1"))
	require.NoError(t, p.Accept())

	err := p.ScanLocation("A1-2")
	assert.ErrorIs(t, err, domain.ErrLocationMismatch)
	assert.Equal(t, workflow.PlacementLocationConfirmed, p.State)
	assert.False(t, p.LocationScanned)

	err = p.ScanItem("SYS1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "location scan is required first")

	require.NoError(t, p.ScanLocation("A1-1"))
	err = p.ScanItem("SYS2")
	assert.ErrorIs(t, err, domain.ErrItemMismatch)
	assert.Equal(t, workflow.PlacementLocationConfirmed, p.State)

	require.NoError(t, p.ScanItem("SYS1"))
}

func TestPlacement_RevertAfterCapacity(t *testing.T) {
	setup := func(t *testing.T) *workflow.Placement {
		p := workflow.NewPlacement("s1", "SYS1", true)
		require.NoError(t, p.Suggest("A1-1"))
		require.NoError(t, p.Accept())
		require.NoError(t, p.ScanLocation("A1-1"))
		require.NoError(t, p.ScanItem("SYS1"))
		return p
	}

	t.Run("with a fresh suggestion", func(t *testing.T) {
		p := setup(t)
		p.RevertAfterCapacity("A1-2", errors.New("full"))
		assert.Equal(t, workflow.PlacementSuggested, p.State)
		assert.Equal(t, "A1-2", p.SuggestedLocation)
		assert.Empty(t, p.ConfirmedLocation)
		assert.False(t, p.LocationScanned)
		assert.Equal(t, "full", p.LastError)
	})

	t.Run("without a suggestion", func(t *testing.T) {
		p := setup(t)
		p.RevertAfterCapacity("", errors.New("full"))
		assert.Equal(t, workflow.PlacementManualSelection, p.State)
	})
}

func TestPlacement_InvalidTransitions(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)

	assert.ErrorIs(t, p.Accept(), domain.ErrInvalidTransition)
	assert.ErrorIs(t, p.Reject(), domain.ErrInvalidTransition)
	assert.ErrorIs(t, p.SelectManual("A1-1"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, p.ScanLocation("A1-1"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, p.ScanItem("SYS1"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, p.ReadyToCommit(), domain.ErrInvalidTransition)

	require.NoError(t, p.Cancel())
	assert.Equal(t, workflow.PlacementCancelled, p.State)
	assert.ErrorIs(t, p.Suggest("A1-1"), domain.ErrInvalidTransition)
}

func TestPlacement_RoundTripsAsJSON(t *testing.T) {
	p := workflow.NewPlacement("s1", "SYS1", true)
	require.NoError(t, p.Suggest("A1-1"))
	require.NoError(t, p.Accept())

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var restored workflow.Placement
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, p.State, restored.State)
	assert.Equal(t, p.ConfirmedLocation, restored.ConfirmedLocation)

	require.NoError(t, restored.ScanLocation("A1-1"))
}

func TestPick(t *testing.T) {
	loc := "A1-1"
	placed := &domain.Item{SystemCode: "SYS123", Status: domain.ItemPlaced, LocationCode: &loc}

	t.Run("requires a placed item", func(t *testing.T) {
		_, err := workflow.NewPick("p1", &domain.Item{SystemCode: "SYS9", Status: domain.ItemPending})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("scan mismatch keeps state", func(t *testing.T) {
		p, err := workflow.NewPick("p1", placed)
		require.NoError(t, err)
		assert.Equal(t, "A1-1", p.LocationCode)

		err = p.ScanItem("SYS124")
		assert.ErrorIs(t, err, domain.ErrItemMismatch)
		assert.Equal(t, workflow.PickSelected, p.State)
		assert.ErrorIs(t, p.ReadyToCommit(), domain.ErrInvalidTransition)
	})

	t.Run("happy path", func(t *testing.T) {
		p, err := workflow.NewPick("p1", placed)
		require.NoError(t, err)
		require.NoError(t, p.ScanItem("SYS123"))
		require.NoError(t, p.ReadyToCommit())
		p.MarkPicked("m1")
		assert.Equal(t, workflow.PickPicked, p.State)
		assert.ErrorIs(t, p.Cancel(), domain.ErrInvalidTransition)
	})

	t.Run("cancel before commit", func(t *testing.T) {
		p, err := workflow.NewPick("p1", placed)
		require.NoError(t, err)
		require.NoError(t, p.Cancel())
		assert.True(t, p.Terminal())
	})
}
