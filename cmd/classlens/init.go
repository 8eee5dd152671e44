package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"classlens/internal/config"
	"classlens/internal/errors"
	"classlens/internal/logging"
	"classlens/internal/model"
	"classlens/internal/storage"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize classlens in the current directory",
	Long:  "Creates a .classlens/ directory with default configuration, default flag rules, and an empty database",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes the existing .classlens directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	dataDir := filepath.Join(cwd, ".classlens")
	if _, statErr := os.Stat(dataDir); statErr == nil {
		if !initForce {
			// Already initialized is success, so repeated init stays CI-friendly
			fmt.Println("classlens already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(dataDir, "config.json"))
			fmt.Println("\nRun 'classlens init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(dataDir); removeErr != nil {
			return errors.New(errors.InternalError, "Failed to remove existing .classlens directory", removeErr)
		}
		logger.Info("Removed existing .classlens directory", nil)
	}

	if mkdirErr := os.MkdirAll(dataDir, 0755); mkdirErr != nil {
		return errors.New(errors.InternalError, "Failed to create .classlens directory", mkdirErr)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(cwd); err != nil {
		return errors.New(errors.ConfigInvalid, "Failed to write config file", err)
	}

	rulesPath := filepath.Join(dataDir, cfg.Rules.Path)
	if err := model.SaveFlagRules(rulesPath, model.DefaultFlagRules()); err != nil {
		return errors.New(errors.RulesInvalid, "Failed to write default flag rules", err)
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to create database", err)
	}
	defer db.Close()

	logger.Info("classlens initialized", map[string]interface{}{
		"data_dir": dataDir,
	})

	fmt.Println("classlens initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", filepath.Join(dataDir, "config.json"))
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'classlens import --roster roster.json' to load students")
	fmt.Println("  2. Run 'classlens query \"How is the class doing?\"'")
	return nil
}

func newCommandLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: "human",
		Level:  "info",
	})
}
