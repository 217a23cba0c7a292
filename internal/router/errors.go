package router

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes router errors.
type ErrorCode string

const (
	// ErrCodeInvalidLocator indicates the locator names no model the
	// registry knows for its user. The call performs no I/O.
	ErrCodeInvalidLocator ErrorCode = "INVALID_LOCATOR"

	// ErrCodeUnsupportedOperation indicates the operation is not valid for
	// the matched route, such as an insert on a single-row locator.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
)

// Error is a fatal router error. Store failures are not Errors; they are
// wrapped and propagated as-is.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Locator is the request locator, as a string.
	Locator string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("%s: %s (locator=%s)", e.Code, e.Message, e.Locator)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidLocator returns true if the error is an invalid locator error.
// Uses errors.As to handle wrapped errors.
func IsInvalidLocator(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidLocator
	}
	return false
}

// IsUnsupported returns true if the error is an unsupported operation error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnsupportedOperation
	}
	return false
}

// WarningCode categorizes recoverable defects.
type WarningCode string

const (
	// WarnMalformedRelationValue indicates a many2many value could not be
	// decoded into row ids. Its links are skipped; the write still succeeds.
	WarnMalformedRelationValue WarningCode = "MALFORMED_RELATION_VALUE"

	// WarnRelationRowNotFound indicates no row matched the selection, so
	// there was no owner for relation links.
	WarnRelationRowNotFound WarningCode = "RELATION_ROW_NOT_FOUND"

	// WarnAmbiguousRelationRow indicates an update selection matched several
	// rows while relation values were supplied. Only the lowest _id among
	// the matches receives links.
	WarnAmbiguousRelationRow WarningCode = "AMBIGUOUS_RELATION_ROW"
)

// Warning is a recoverable defect reported alongside a successful write.
type Warning struct {
	Code    WarningCode `json:"code"`
	Column  string      `json:"column,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Column != "" {
		return fmt.Sprintf("%s %s: %s", w.Code, w.Column, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
