package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Users can quote the code to support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Patterns: "file too large"
//	FILE002 - Unsupported format: Only CSV and Excel files are accepted
//	          Patterns: "unsupported file format"
//	FILE003 - Invalid CSV: File is not a valid CSV
//	          Patterns: "invalid csv"
//	FILE004 - Invalid spreadsheet: Excel workbook could not be read
//	          Patterns: "invalid xlsx"
//	FILE005 - No file: No file was selected
//	          Patterns: "no file provided"
//	FILE006 - Empty file: The uploaded file has no header row or is empty
//	          Patterns: "empty file", "missing header row"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: The session does not exist or has expired
//	         Patterns: "session not found"
//	SES002 - Not configured: Cleaning was requested before configuration
//	         Patterns: "cleaning not configured"
//	SES003 - Not cleaned: A report or download was requested before cleaning
//	         Patterns: "cleaning has not run"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid operation: An operation cannot be applied to its column
//	         Patterns: "invalid operation"
//	CFG002 - Invalid parameter: An operation parameter has the wrong type
//	         Patterns: "invalid parameter"
//	CFG003 - Unsupported export: The requested download format is unknown
//	         Patterns: "unsupported export format"
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - System busy: Too many jobs in progress
//	         Patterns: "too many jobs"
//	JOB002 - Request cancelled
//	         Patterns: "context canceled"
//	JOB003 - Request timeout
//	         Patterns: "context deadline exceeded", "timeout"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check application logs for the original
// technical error.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file too large", UserMessage{"File exceeds maximum size limit", "Upload a smaller file or remove unused columns", "FILE001"}},
	{"unsupported file format", UserMessage{"Unsupported file format", "Upload a .csv, .xlsx or .xls file", "FILE002"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with consistent columns", "FILE003"}},
	{"invalid xlsx", UserMessage{"Spreadsheet could not be read", "Re-save the workbook as .xlsx and try again", "FILE004"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE005"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a file with a header row and data rows", "FILE006"}},
	{"missing header row", UserMessage{"The uploaded file is empty", "Upload a file with a header row and data rows", "FILE006"}},

	// Session errors
	{"session not found", UserMessage{"Session not found", "The session may have expired. Please upload the file again", "SES001"}},
	{"cleaning not configured", UserMessage{"Cleaning has not been configured", "Configure cleaning operations first", "SES002"}},
	{"cleaning has not run", UserMessage{"No cleaned data available yet", "Run cleaning before requesting reports or downloads", "SES003"}},

	// Configuration errors
	{"invalid operation", UserMessage{"Some operations cannot be applied", "Check the listed columns and operation types", "CFG001"}},
	{"invalid parameter", UserMessage{"An operation parameter is invalid", "Check the parameter values of your operations", "CFG002"}},
	{"unsupported export format", UserMessage{"Unsupported download format", "Use csv or excel", "CFG003"}},

	// Job errors
	{"too many jobs", UserMessage{"System is busy processing other datasets", "Please wait a moment and try again", "JOB001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "JOB002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "JOB003"}},
	{"timeout", UserMessage{"Request timed out", "Try a smaller file or try again later", "JOB003"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
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

// UserError wraps a technical error with a user-friendly message.
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

// NewUserError maps a technical error to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
