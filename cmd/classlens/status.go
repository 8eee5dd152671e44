package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classlens/internal/config"
	"classlens/internal/errors"
	"classlens/internal/storage"
	"classlens/internal/version"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show roster size, record counts, and configuration summary",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return errors.New(errors.ConfigInvalid, "Failed to load configuration", err)
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to open database", err)
	}
	defer db.Close()

	rosterCount, err := db.CountStudents(ctx)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to count students", err)
	}

	counts, err := db.SourceCounts(ctx)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to count records", err)
	}

	generation, err := db.Generation()
	if err != nil {
		return errors.New(errors.StoreError, "Failed to read roster generation", err)
	}

	fmt.Printf("classlens %s\n\n", version.Version)
	fmt.Printf("Roster:        %d students (generation %d)\n", rosterCount, generation)
	for _, source := range []string{"attendance", "grades", "assessments", "discipline", "observations"} {
		fmt.Printf("%-14s %d records\n", source+":", counts[source])
	}
	fmt.Printf("\nBudget trigger:  >%d candidates or ranking query\n", cfg.Budget.TriggerCandidateCount)
	fmt.Printf("Chronic absence: <%.0f%% attendance\n", cfg.Thresholds.ChronicAbsenteeismRate)
	fmt.Printf("Aggregator pool: %d workers\n", cfg.Aggregator.PoolSize)
	return nil
}
