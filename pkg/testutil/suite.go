package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"github.com/rackslot/rackslot-backend/migrations"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/database"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real
// PostgreSQL and the embedded schema applied.
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (or reuses) the shared container and
// migrates it to the latest schema.
//
// Usage:
//
//	func TestStore_Integration(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    suite := testutil.NewIntegrationSuite(t)
//	    suite.Reset(t)
//	    store := postgres.NewStore(suite.DB)
//	    ...
//	}
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := getOrCreateContainer(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	log := logger.NewNop()
	cfg := &config.DatabaseConfig{URL: container.DSN, MaxOpenConns: 20, MaxIdleConns: 5}

	migrator, err := database.NewMigrator(cfg, migrations.FS, log)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &IntegrationSuite{
		Container: container,
		DB:        db,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
	})
	return globalContainer, containerErr
}

// Reset empties every placement table so each test starts clean.
func (s *IntegrationSuite) Reset(t *testing.T) {
	t.Helper()
	_, err := s.DB.ExecContext(context.Background(),
		`TRUNCATE movements, category_counters, items, locations`)
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// Exec runs raw SQL, e.g. to arrange state the repository cannot produce.
func (s *IntegrationSuite) Exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	if _, err := s.DB.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) error {
	if globalContainer == nil {
		return nil
	}
	if err := globalContainer.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB   *MockDB
	Fixtures *FixtureFactory
	t        *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB:   NewMockDB(t),
		Fixtures: NewFixtureFactory(),
		t:        t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}
