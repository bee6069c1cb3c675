package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/session"
)

// seedFile is the layout of a warehouse seed file:
//
//	locations:
//	  - {row: A, bay: "1", level: "0", rack_type: floor}
//	  - {row: A, bay: "1", level: "1", rack_type: light, max_weight: "180"}
//	counters:
//	  - {category: fasteners, quantity: 250}
type seedFile struct {
	Locations []seedLocation `mapstructure:"locations"`
	Counters  []seedCounter  `mapstructure:"counters"`
}

type seedLocation struct {
	Row       string `mapstructure:"row"`
	Bay       string `mapstructure:"bay"`
	Level     string `mapstructure:"level"`
	Position  string `mapstructure:"position"`
	RackType  string `mapstructure:"rack_type"`
	MaxWeight string `mapstructure:"max_weight"`
	Available *bool  `mapstructure:"available"`
	Verified  bool   `mapstructure:"verified"`
}

type seedCounter struct {
	Category string `mapstructure:"category"`
	Quantity int    `mapstructure:"quantity"`
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert location geometry and initial kanban stock from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			return seed(cmd.Context(), path)
		},
	}
	cmd.Flags().String("file", "locations.yaml", "Seed file")
	return cmd
}

func seed(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	file, err := readSeedFile(path)
	if err != nil {
		return err
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if err := rt.openStore(true); err != nil {
		return err
	}
	defer rt.close()

	for _, sl := range file.Locations {
		loc, err := sl.location()
		if err != nil {
			return fmt.Errorf("location %s%s-%s: %w", sl.Row, sl.Bay, sl.Level, err)
		}
		if err := rt.store.UpsertLocation(ctx, loc); err != nil {
			return fmt.Errorf("failed to upsert location %s: %w", loc.Code, err)
		}
	}
	rt.log.Info().Int("count", len(file.Locations)).Msg("locations seeded")

	svc := rt.newService(session.NewMemoryStore(), nil)
	if err := svc.EnsureCounters(ctx); err != nil {
		return fmt.Errorf("failed to create kanban counters: %w", err)
	}
	for _, sc := range file.Counters {
		if sc.Quantity <= 0 {
			continue
		}
		// The request id makes re-running the same seed a no-op.
		result, err := svc.AdjustCounter(ctx, service.AdjustCounterInput{
			Category:  sc.Category,
			Direction: domain.MovementIn,
			Quantity:  sc.Quantity,
			RequestID: fmt.Sprintf("seed:%s:%d", sc.Category, sc.Quantity),
			Operator:  "seed",
		})
		if err != nil {
			return fmt.Errorf("failed to seed counter %s: %w", sc.Category, err)
		}
		rt.log.Info().
			Str("category", sc.Category).
			Int("quantity", result.Counter.CurrentQuantity).
			Bool("replayed", result.Replayed).
			Msg("counter seeded")
	}

	return nil
}

func readSeedFile(path string) (*seedFile, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &file, nil
}

// location builds the slot. Without max_weight the rack type's rated load applies.
func (sl seedLocation) location() (*domain.Location, error) {
	rackType := domain.RackType(sl.RackType)
	if rackType == "" {
		rackType = domain.RackTypeStandard
	}

	maxWeight := rackType.DefaultMaxWeight()
	if sl.MaxWeight != "" {
		d, err := decimal.NewFromString(sl.MaxWeight)
		if err != nil {
			return nil, fmt.Errorf("invalid max_weight %q: %w", sl.MaxWeight, err)
		}
		maxWeight = decimal.NewNullDecimal(d)
	}

	loc, err := domain.NewLocation(sl.Row, sl.Bay, sl.Level, sl.Position, rackType, maxWeight)
	if err != nil {
		return nil, err
	}
	if sl.Available != nil {
		loc.Available = *sl.Available
	}
	loc.Verified = sl.Verified
	return loc, nil
}
