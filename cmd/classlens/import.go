package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classlens/internal/errors"
	"classlens/internal/model"
	"classlens/internal/storage"
)

var (
	importRoster       string
	importAttendance   string
	importGrades       string
	importAssessments  string
	importDiscipline   string
	importObservations string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import roster and record files into the store",
	Long: `Loads JSON files into the record store. The roster file is an array of
student objects; each record file is an array of records keyed by the stable
student id. Re-importing a roster matches by district student number and
preserves each student's stable id.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importRoster, "roster", "", "Roster JSON file (array of students)")
	importCmd.Flags().StringVar(&importAttendance, "attendance", "", "Attendance records JSON file")
	importCmd.Flags().StringVar(&importGrades, "grades", "", "Grade records JSON file")
	importCmd.Flags().StringVar(&importAssessments, "assessments", "", "Assessment records JSON file")
	importCmd.Flags().StringVar(&importDiscipline, "discipline", "", "Discipline incidents JSON file")
	importCmd.Flags().StringVar(&importObservations, "observations", "", "Observation notes JSON file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	ctx := context.Background()

	if importRoster == "" && importAttendance == "" && importGrades == "" &&
		importAssessments == "" && importDiscipline == "" && importObservations == "" {
		return errors.New(errors.ImportFailed, "No input files given; pass at least one --roster/--attendance/... flag", nil)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to get current directory", err)
	}

	db, err := storage.Open(cwd, logger)
	if err != nil {
		return errors.New(errors.StoreError, "Failed to open database", err)
	}
	defer db.Close()

	if importRoster != "" {
		var students []model.Student
		if err := readJSONFile(importRoster, &students); err != nil {
			return err
		}
		if err := db.UpsertStudents(ctx, students); err != nil {
			return errors.New(errors.ImportFailed, "Roster import failed", err)
		}
		fmt.Printf("Imported %d roster entries\n", len(students))
	}

	if importAttendance != "" {
		var records []model.AttendanceRecord
		if err := readJSONFile(importAttendance, &records); err != nil {
			return err
		}
		if err := db.InsertAttendance(ctx, records); err != nil {
			return errors.New(errors.ImportFailed, "Attendance import failed", err)
		}
		fmt.Printf("Imported %d attendance records\n", len(records))
	}

	if importGrades != "" {
		var records []model.GradeRecord
		if err := readJSONFile(importGrades, &records); err != nil {
			return err
		}
		if err := db.InsertGrades(ctx, records); err != nil {
			return errors.New(errors.ImportFailed, "Grade import failed", err)
		}
		fmt.Printf("Imported %d grade records\n", len(records))
	}

	if importAssessments != "" {
		var records []model.AssessmentRecord
		if err := readJSONFile(importAssessments, &records); err != nil {
			return err
		}
		if err := db.InsertAssessments(ctx, records); err != nil {
			return errors.New(errors.ImportFailed, "Assessment import failed", err)
		}
		fmt.Printf("Imported %d assessment records\n", len(records))
	}

	if importDiscipline != "" {
		var records []model.DisciplineIncident
		if err := readJSONFile(importDiscipline, &records); err != nil {
			return err
		}
		if err := db.InsertDiscipline(ctx, records); err != nil {
			return errors.New(errors.ImportFailed, "Discipline import failed", err)
		}
		fmt.Printf("Imported %d discipline incidents\n", len(records))
	}

	if importObservations != "" {
		var notes []model.ObservationNote
		if err := readJSONFile(importObservations, &notes); err != nil {
			return err
		}
		if err := db.InsertObservations(ctx, notes); err != nil {
			return errors.New(errors.ImportFailed, "Observation import failed", err)
		}
		fmt.Printf("Imported %d observation notes\n", len(notes))
	}

	return nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ImportFailed, fmt.Sprintf("Failed to read %s", path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New(errors.ImportFailed, fmt.Sprintf("Failed to parse %s", path), err)
	}
	return nil
}
