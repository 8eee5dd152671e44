package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classlens/internal/errors"
	"classlens/internal/storage"
)

var eraseCmd = &cobra.Command{
	Use:   "erase <student-id>",
	Short: "Remove a student and every owned record",
	Long: `Handles an explicit privacy-erasure request: deletes the student's roster
entry and all attendance, grade, assessment, discipline, and observation
records owned by the stable id. This is the only way a student leaves the
store; re-imports never delete.`,
	Args: cobra.ExactArgs(1),
	RunE: runErase,
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to open database", err)
	}
	defer db.Close()

	if err := db.DeleteStudent(context.Background(), args[0]); err != nil {
		return errors.New(errors.StoreError, "Erasure failed", err)
	}

	fmt.Printf("Erased student %s and all owned records\n", args[0])
	return nil
}
