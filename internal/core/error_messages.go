package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis. Error codes are grouped by category:
//
// # Session Errors (SES001-SES099)
//
// Errors related to working sessions and the loaded table:
//
//	SES001 - Session not found or expired
//	         Action: Load the file again to start a new session
//	         Patterns: "session not found"
//
//	SES002 - Too many open sessions
//	         Action: Close an unused session and try again
//	         Patterns: "session limit reached"
//
//	SES003 - No data has been loaded
//	         Action: Load a CSV, XLSX or JSON file first
//	         Patterns: "no data loaded"
//
//	SES004 - Row does not exist
//	         Action: Refresh the table and try the edit again
//	         Patterns: "row index out of range"
//
//	SES005 - Column does not exist
//	         Action: Check the column name against the current table
//	         Patterns: "unknown column"
//
//	SES006 - Column position does not exist
//	         Action: Refresh the table and try the move again
//	         Patterns: "column position out of range"
//
//	SES007 - Profile not found
//	         Action: Choose one of the listed profiles
//	         Patterns: "profile not found"
//
// # Pipeline Errors (STEP001-STEP099)
//
// Errors related to transformation steps:
//
//	STEP001 - Step does not exist
//	          Action: Refresh the pipeline and try again
//	          Patterns: "step index out of range"
//
//	STEP002 - Unknown transformation step
//	          Action: Choose a step from the supported catalog
//	          Patterns: "unknown operation"
//
//	STEP003 - A step is missing a required setting
//	          Action: Fill in every field for the step
//	          Patterns: "missing required parameter"
//
//	STEP004 - A column with that name already exists
//	          Action: Pick a different column name
//	          Patterns: "rename collision"
//
//	STEP005 - Invalid regular expression
//	          Action: Check the pattern syntax
//	          Patterns: "invalid regex"
//
//	STEP006 - Invalid expression
//	          Action: Use field names, operators and supported functions only
//	          Patterns: "expression syntax error"
//
// # Reconciliation Errors (RCN001-RCN099)
//
// Errors related to GL/TB tie-out:
//
//	RCN001 - Entity column must be set on both tables
//	         Action: Select an entity column for both tables or for neither
//	         Patterns: "entity column must be set"
//
//	RCN002 - Tolerance must not be negative
//	         Action: Enter a tolerance of zero or more
//	         Patterns: "must be non-negative"
//
// # Recipe Errors (RCP001-RCP099)
//
// Errors related to saved transformation recipes:
//
//	RCP001 - Recipe not found
//	         Action: Refresh the recipe list
//	         Patterns: "recipe not found"
//
//	RCP002 - Recipe file could not be read
//	         Action: Export the recipe again from a working session
//	         Patterns: "invalid recipe"
//
// # File Errors (FILE001-FILE099)
//
// Errors related to file handling and parsing:
//
//	FILE001 - File exceeds maximum size limit
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large"
//
//	FILE002 - Unsupported file type
//	          Action: Use a .csv, .xlsx or .json file
//	          Patterns: "unsupported file format"
//
//	FILE003 - File contains no data
//	          Action: Check that the file has a header row and data
//	          Patterns: "file is empty"
//
//	FILE004 - File is not a valid CSV
//	          Action: Ensure the file is comma-separated with consistent quoting
//	          Patterns: "parse error on line"
//
//	FILE005 - File is not valid JSON
//	          Action: Provide an array of objects or an object with a data array
//	          Patterns: "invalid json"
//
//	FILE006 - Worksheet not found
//	          Action: Check the sheet name in the workbook
//	          Patterns: "sheet not found"
//
// # Database Errors (DB001-DB099)
//
// Errors related to the recipe store:
//
//	DB001 - Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
//	DB002 - Operation timed out
//	        Action: Try a smaller file or try again later
//	        Patterns: "timeout"
//
// # Rate Limiting (RATE001-RATE099)
//
// Errors related to request and compute limits:
//
//	RATE001 - Server is busy
//	          Action: Please wait a moment before trying again
//	          Patterns: "too many concurrent jobs"
//
//	RATE002 - Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # For Support Staff
//
// When a user reports ERR000, check application logs for the original
// technical error; the request_id field correlates the entries.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Session Errors (SES001-SES099)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Session not found or expired",
			Action:  "Load the file again to start a new session",
			Code:    "SES001",
		},
	},
	{
		pattern: "session limit reached",
		msg: UserMessage{
			Message: "Too many open sessions",
			Action:  "Close an unused session and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "no data loaded",
		msg: UserMessage{
			Message: "No data has been loaded",
			Action:  "Load a CSV, XLSX or JSON file first",
			Code:    "SES003",
		},
	},
	{
		pattern: "row index out of range",
		msg: UserMessage{
			Message: "Row does not exist",
			Action:  "Refresh the table and try the edit again",
			Code:    "SES004",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "Column does not exist",
			Action:  "Check the column name against the current table",
			Code:    "SES005",
		},
	},
	{
		pattern: "column position out of range",
		msg: UserMessage{
			Message: "Column position does not exist",
			Action:  "Refresh the table and try the move again",
			Code:    "SES006",
		},
	},
	{
		pattern: "profile not found",
		msg: UserMessage{
			Message: "Profile not found",
			Action:  "Choose one of the listed profiles",
			Code:    "SES007",
		},
	},
	// =========================================================================
	// Pipeline Errors (STEP001-STEP099)
	// =========================================================================
	{
		pattern: "step index out of range",
		msg: UserMessage{
			Message: "Step does not exist",
			Action:  "Refresh the pipeline and try again",
			Code:    "STEP001",
		},
	},
	{
		pattern: "unknown operation",
		msg: UserMessage{
			Message: "Unknown transformation step",
			Action:  "Choose a step from the supported catalog",
			Code:    "STEP002",
		},
	},
	{
		pattern: "missing required parameter",
		msg: UserMessage{
			Message: "A step is missing a required setting",
			Action:  "Fill in every field for the step",
			Code:    "STEP003",
		},
	},
	{
		pattern: "rename collision",
		msg: UserMessage{
			Message: "A column with that name already exists",
			Action:  "Pick a different column name",
			Code:    "STEP004",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "A column with that name already exists",
			Action:  "Pick a different column name",
			Code:    "STEP004",
		},
	},
	{
		pattern: "invalid regex",
		msg: UserMessage{
			Message: "Invalid regular expression",
			Action:  "Check the pattern syntax",
			Code:    "STEP005",
		},
	},
	{
		pattern: "expression syntax error",
		msg: UserMessage{
			Message: "Invalid expression",
			Action:  "Use field names, operators and supported functions only",
			Code:    "STEP006",
		},
	},
	// =========================================================================
	// Reconciliation Errors (RCN001-RCN099)
	// =========================================================================
	{
		pattern: "entity column must be set",
		msg: UserMessage{
			Message: "Entity column must be set on both tables",
			Action:  "Select an entity column for both tables or for neither",
			Code:    "RCN001",
		},
	},
	{
		pattern: "must be non-negative",
		msg: UserMessage{
			Message: "Tolerance must not be negative",
			Action:  "Enter a tolerance of zero or more",
			Code:    "RCN002",
		},
	},
	// =========================================================================
	// Recipe Errors (RCP001-RCP099)
	// =========================================================================
	{
		pattern: "recipe not found",
		msg: UserMessage{
			Message: "Recipe not found",
			Action:  "Refresh the recipe list",
			Code:    "RCP001",
		},
	},
	{
		pattern: "invalid recipe",
		msg: UserMessage{
			Message: "Recipe file could not be read",
			Action:  "Export the recipe again from a working session",
			Code:    "RCP002",
		},
	},
	// =========================================================================
	// File Errors (FILE001-FILE099)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "Unsupported file type",
			Action:  "Use a .csv, .xlsx or .json file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "File contains no data",
			Action:  "Check that the file has a header row and data",
			Code:    "FILE003",
		},
	},
	{
		pattern: "parse error on line",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent quoting",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "File is not valid JSON",
			Action:  "Provide an array of objects or an object with a data array",
			Code:    "FILE005",
		},
	},
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "Worksheet not found",
			Action:  "Check the sheet name in the workbook",
			Code:    "FILE006",
		},
	},
	// =========================================================================
	// Database Errors (DB001-DB099)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB002",
		},
	},
	// =========================================================================
	// Rate Limiting (RATE001-RATE099)
	// =========================================================================
	{
		pattern: "too many concurrent jobs",
		msg: UserMessage{
			Message: "Server is busy",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := fmt.Errorf("edit: %w", ErrSessionNotFound)
//	msg := MapError(err)
//	// msg.Code == "SES001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
