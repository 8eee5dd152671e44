package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"classlens/internal/config"
	"classlens/internal/engine"
	"classlens/internal/errors"
	"classlens/internal/logging"
	"classlens/internal/model"
	"classlens/internal/output"
	"classlens/internal/storage"
)

var (
	queryDeep bool
	queryOut  string
)

var queryCmd = &cobra.Command{
	Use:   "query \"<question>\"",
	Short: "Answer a free-text question about the roster",
	Long: `Runs the retrieval pipeline for one question and prints the resulting
StudentDataContext as deterministic JSON. With --deep, explicitly named
students additionally get full risk profiles.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryDeep, "deep", false, "Build full risk profiles for explicitly named students")
	queryCmd.Flags().StringVar(&queryOut, "out", "", "Write the context to a file instead of stdout (.zst files are zstd-compressed)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()

	eng, cleanup, err := buildEngine(logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result := eng.Retrieve(context.Background(), args[0], queryDeep)

	data, err := output.DeterministicEncodeIndented(result, "  ")
	if err != nil {
		return errors.New(errors.InternalError, "Failed to encode context", err)
	}

	if queryOut == "" {
		fmt.Println(string(data))
		return nil
	}
	return writeSnapshot(queryOut, data)
}

// buildEngine loads config, store, and rules for the current directory and
// wires the retrieval engine. The returned cleanup closes the store.
func buildEngine(logger *logging.Logger) (*engine.Engine, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return nil, nil, errors.New(errors.ConfigInvalid, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.New(errors.ConfigInvalid, "Invalid configuration", err)
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return nil, nil, errors.New(errors.StoreError, "Failed to open database", err)
	}

	rulesPath := filepath.Join(cwd, cfg.DataDir, cfg.Rules.Path)
	rules, err := model.LoadFlagRules(rulesPath)
	if err != nil {
		db.Close()
		return nil, nil, errors.New(errors.RulesInvalid, "Failed to load flag rules", err)
	}

	eng := engine.New(engine.Options{
		Store:  db,
		Rules:  rules,
		Config: cfg,
		Logger: logger,
	})
	return eng, func() { db.Close() }, nil
}

// writeSnapshot writes the encoded context to a file, zstd-compressing when
// the filename asks for it
func writeSnapshot(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.InternalError, "Failed to create output file", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		if _, err := f.Write(data); err != nil {
			return errors.New(errors.InternalError, "Failed to write output file", err)
		}
		return nil
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return errors.New(errors.InternalError, "Failed to create zstd writer", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return errors.New(errors.InternalError, "Failed to write compressed snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return errors.New(errors.InternalError, "Failed to finish compressed snapshot", err)
	}

	fmt.Printf("Wrote compressed snapshot to %s\n", path)
	return nil
}
