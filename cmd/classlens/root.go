package main

import (
	"classlens/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classlens",
	Short: "classlens - contextual student-data retrieval engine",
	Long: `classlens answers free-text questions about a student roster by resolving
the question to a candidate set, aggregating attendance, grades, assessments,
discipline, and observation notes in parallel, and emitting a budgeted,
deterministic context object for a downstream LLM consumer.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("classlens version {{.Version}}\n")
}
