package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"classlens/internal/aggregate"
	"classlens/internal/config"
	"classlens/internal/errors"
	"classlens/internal/model"
	"classlens/internal/output"
	"classlens/internal/storage"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the configured flag rules",
	RunE:  runRulesList,
}

var rulesEvalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the flag rules against the whole roster",
	RunE:  runRulesEval,
}

func init() {
	rulesCmd.AddCommand(rulesEvalCmd)
	rootCmd.AddCommand(rulesCmd)
}

func loadRules() ([]model.FlagRule, *config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, "", errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return nil, nil, "", errors.New(errors.ConfigInvalid, "Failed to load configuration", err)
	}

	rulesPath := filepath.Join(cwd, cfg.DataDir, cfg.Rules.Path)
	rules, err := model.LoadFlagRules(rulesPath)
	if err != nil {
		return nil, nil, "", errors.New(errors.RulesInvalid, "Failed to load flag rules", err)
	}
	return rules, cfg, cwd, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rules, _, _, err := loadRules()
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		fmt.Println("No flag rules configured. Run 'classlens init' to write the defaults.")
		return nil
	}

	for _, r := range rules {
		state := "active"
		if !r.Active {
			state = "inactive"
		}
		fmt.Printf("%-24s %-12s %s %g  severity=%s  (%s)\n",
			r.Name, r.Category, r.Direction, r.Threshold, r.Severity, state)
	}
	return nil
}

func runRulesEval(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	ctx := context.Background()

	rules, cfg, cwd, err := loadRules()
	if err != nil {
		return err
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to open database", err)
	}
	defer db.Close()

	roster, err := db.AllStudents(ctx)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to load roster", err)
	}
	if len(roster) == 0 {
		return errors.New(errors.EmptyRoster, "No students imported yet", nil)
	}

	agg := aggregate.New(db, logger, cfg.Thresholds, cfg.Aggregator, nil)
	result := agg.Aggregate(ctx, roster, rules)

	data, err := output.DeterministicEncodeIndented(result.Flags, "  ")
	if err != nil {
		return errors.New(errors.InternalError, "Failed to encode flags", err)
	}
	fmt.Println(string(data))
	return nil
}
