// Package domainerrors defines the typed errors services return to callers.
//
// Stores return sentinel facts (pkg/platform/sentinel); services translate them
// into an *Error carrying a Code. Every Code belongs to exactly one Category,
// which is what transports use to pick a status and what callers branch on.
// The Message is always safe to show: each guard failure maps to an
// actionable fix ("provide a reason before rejecting").
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a specific failure.
type Code string

const (
	// Validation
	CodeBadRequest          Code = "bad_request"
	CodeInvalidInput        Code = "invalid_input"
	CodeIncompleteProfile   Code = "incomplete_profile"
	CodeMissingDocuments    Code = "missing_documents"
	CodeMissingNotes        Code = "missing_notes"
	CodeScorecardIncomplete Code = "scorecard_incomplete"

	// Invalid transition
	CodeInvalidTransition Code = "invalid_transition"
	CodeNotCertified      Code = "not_certified"
	CodeNotCancelable     Code = "not_cancelable"
	CodeAlreadyRevoked    Code = "already_revoked"

	// Conflict
	CodeConflict         Code = "conflict"
	CodeDuplicateRequest Code = "duplicate_request"

	CodeNotFound Code = "not_found"

	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Category groups codes into the error taxonomy callers reason about.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryInvalidTransition Category = "invalid_transition"
	CategoryConflict          Category = "conflict"
	CategoryNotFound          Category = "not_found"
	CategoryUnauthorized      Category = "unauthorized"
	CategoryForbidden         Category = "forbidden"
	CategoryInternal          Category = "internal"
)

var codeCategories = map[Code]Category{
	CodeBadRequest:          CategoryValidation,
	CodeInvalidInput:        CategoryValidation,
	CodeIncompleteProfile:   CategoryValidation,
	CodeMissingDocuments:    CategoryValidation,
	CodeMissingNotes:        CategoryValidation,
	CodeScorecardIncomplete: CategoryValidation,

	CodeInvalidTransition: CategoryInvalidTransition,
	CodeNotCertified:      CategoryInvalidTransition,
	CodeNotCancelable:     CategoryInvalidTransition,
	CodeAlreadyRevoked:    CategoryInvalidTransition,

	CodeConflict:         CategoryConflict,
	CodeDuplicateRequest: CategoryConflict,

	CodeNotFound: CategoryNotFound,

	CodeUnauthorized: CategoryUnauthorized,
	CodeForbidden:    CategoryForbidden,
}

// Category returns the taxonomy bucket for the code. Unknown codes,
// timeouts and invariant violations are internal.
func (c Code) Category() Category {
	if cat, ok := codeCategories[c]; ok {
		return cat
	}
	return CategoryInternal
}

// Error is a domain error with a stable code and a caller-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// From returns the outermost domain error in the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain has code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// CategoryOf returns the category of err; non-domain errors are internal.
func CategoryOf(err error) Category {
	de, ok := From(err)
	if !ok {
		return CategoryInternal
	}
	return de.Code.Category()
}
