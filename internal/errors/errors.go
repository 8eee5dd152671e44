package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StoreError indicates the record store could not be opened or queried
	StoreError ErrorCode = "STORE_ERROR"
	// SourceUnavailable indicates a single record source failed to aggregate
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// EmptyRoster indicates no students have been imported yet
	EmptyRoster ErrorCode = "EMPTY_ROSTER"
	// RulesInvalid indicates the flag-rule file could not be parsed
	RulesInvalid ErrorCode = "RULES_INVALID"
	// ImportFailed indicates a roster or record import failed
	ImportFailed ErrorCode = "IMPORT_FAILED"
	// ConfigInvalid indicates the configuration file is malformed
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Safe        bool   `json:"safe,omitempty"`
	Description string `json:"description,omitempty"`
}

// EngineError represents a classlens error with code, message, and suggestions
type EngineError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new EngineError
func New(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: defaultActions[code],
	}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *EngineError) WithDetails(details interface{}) *EngineError {
	e.Details = details
	return e
}

// defaultActions maps error codes to suggested fix actions
var defaultActions = map[ErrorCode][]FixAction{
	EmptyRoster: {
		{
			Command:     "classlens import --roster roster.json",
			Safe:        true,
			Description: "Import a student roster before querying",
		},
	},
	StoreError: {
		{
			Command:     "classlens init",
			Safe:        true,
			Description: "Initialize the .classlens directory and database",
		},
	},
	RulesInvalid: {
		{
			Command:     "classlens rules",
			Safe:        true,
			Description: "List the currently loaded flag rules and their parse status",
		},
	},
}
