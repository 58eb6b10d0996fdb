package core

// # Error Codes Reference
//
// User-facing messages with codes for support reference. Users quote the
// code; support looks it up here.
//
// # Format Errors (FMT001-FMT099)
//
// Matched by type with errors.As, so they win over every text pattern:
//
//	FMT001 - Not an export: first line is not a plots, world or
//	         BehaviorSpace export header
//	FMT002 - Bad quoting: a line has an unterminated or misplaced quote
//	FMT003 - Bad header: a header row does not have the expected shape
//	FMT004 - Truncated export: a required section never appears
//	FMT005 - Missing key column: who, end1 or end2 is absent
//	FMT006 - Wrong target: the file kind cannot produce the target
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key"
//	DB002 - Unique constraint        Patterns: "unique constraint", "violates unique"
//	DB004 - Connection refused       Patterns: "connection refused"
//	DB005 - Connection reset         Patterns: "connection reset"
//	DB006 - Timeout                  Patterns: "timeout"
//	DB007 - Deadlock                 Patterns: "deadlock"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large", "request body too large"
//	FILE002 - Bad compression        Patterns: "invalid gzip", "invalid zstd"
//	FILE003 - Encoding error         Patterns: "encoding error"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Missing file           Patterns: "no such file"
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - System busy             Patterns: "too many concurrent conversions"
//	CNV002 - Request cancelled       Patterns: "context canceled"
//	CNV003 - Request timeout         Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the original error.
//
// Text patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/nlexport/internal/dump"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorType matches one error type anywhere in the chain.
type errorType struct {
	match func(error) bool
	msg   UserMessage
}

func isType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

var errorTypes = []errorType{
	{
		match: isType[*dump.UnrecognizedFormatError],
		msg: UserMessage{
			Message: "File is not a NetLogo export",
			Action:  "Upload a plots export, a world export or BehaviorSpace results",
			Code:    "FMT001",
		},
	},
	{
		match: isType[*dump.MalformedCellError],
		msg: UserMessage{
			Message: "A line of the export has broken quoting",
			Action:  "Re-export the file from NetLogo instead of editing it by hand",
			Code:    "FMT002",
		},
	},
	{
		match: isType[*dump.MalformedHeaderError],
		msg: UserMessage{
			Message: "A header row has an unexpected shape",
			Action:  "Check that the file is an unmodified export",
			Code:    "FMT003",
		},
	},
	{
		match: isType[*dump.SectionNotFoundError],
		msg: UserMessage{
			Message: "The export is truncated or missing a section",
			Action:  "Re-export the file and upload it again",
			Code:    "FMT004",
		},
	},
	{
		match: isType[*dump.MissingKeyColumnError],
		msg: UserMessage{
			Message: "The sheet is missing its key column",
			Action:  "Export turtles with who and links with end1 and end2",
			Code:    "FMT005",
		},
	},
	{
		match: isType[*dump.TargetMismatchError],
		msg: UserMessage{
			Message: "This kind of export does not contain the requested data",
			Action:  "Choose plots for plots exports and experiment for BehaviorSpace results",
			Code:    "FMT006",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Compress the export with gzip or zstd, or split the batch",
		Code:    "FILE001",
	}
	msgBadCompression = UserMessage{
		Message: "Compressed file could not be read",
		Action:  "Check that the file was fully uploaded",
		Code:    "FILE002",
	}
	msgUnique = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Load into a new table or remove the existing rows",
		Code:    "DB002",
	}
)

// errorPatterns maps technical error text (case-insensitive) to user
// messages. Order matters: the first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Load into a new table or remove the existing rows",
			Code:    "DB001",
		},
	},
	{pattern: "unique constraint", msg: msgUnique},
	{pattern: "violates unique", msg: msgUnique},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "invalid gzip", msg: msgBadCompression},
	{pattern: "invalid zstd", msg: msgBadCompression},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File uses an unknown character encoding",
			Action:  "Use utf-8, latin1, windows-1252 or macintosh",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select one or more export files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Input file not found",
			Action:  "Check the path and try again",
			Code:    "FILE005",
		},
	},

	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "Too many conversions in progress",
			Action:  "Please wait a moment and try again",
			Code:    "CNV001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "CNV002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Convert fewer files at once or check your connection",
			Code:    "CNV003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Parse
// errors are recognized by type; everything else by its text.
//
// Example:
//
//	msg := MapError(err)
//	// msg.Code == "FMT004" for a truncated world export
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, et := range errorTypes {
		if et.match(err) {
			return et.msg
		}
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error
	User      UserMessage
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
