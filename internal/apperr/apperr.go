// Package apperr defines the error kinds surfaced by services and mapped to
// HTTP statuses by the handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	}
	return "internal"
}

// HTTPStatus maps a kind to the response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindDuplicate:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidID          = "INVALID_ID"
	CodeMissingCredential  = "MISSING_CREDENTIAL"
	CodeInvalidCredential  = "INVALID_CREDENTIAL"
	CodeUnknownSubject     = "UNKNOWN_SUBJECT"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeLastAddress        = "LAST_ADDRESS"
	CodeSelfModification   = "SELF_MODIFICATION_FORBIDDEN"
	CodeAdminRequired      = "ADMIN_REQUIRED"
	CodeInvalidReminder    = "INVALID_REMINDER"
	CodeInvalidDueDate     = "INVALID_DUE_DATE"
	CodeQueryTooShort      = "QUERY_TOO_SHORT"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
	CodeBatchTooLarge      = "BATCH_TOO_LARGE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields carries per-field validation messages.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so callers can compare against
// template values such as ErrLastAddress.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Invalid(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: msg, Fields: fields}
}

func Duplicate(msg string) *Error {
	return &Error{Kind: KindDuplicate, Code: CodeDuplicateEmail, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func Unauthorized(code, msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: msg}
}

func Forbidden(code, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

// Internal wraps an unexpected failure. A nil err yields nil.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err; errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or "" when err is not an *Error.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

var (
	ErrMissingCredential  = Unauthorized(CodeMissingCredential, "Not authorized, no token")
	ErrInvalidCredential  = Unauthorized(CodeInvalidCredential, "Not authorized, token failed")
	ErrUnknownSubject     = Unauthorized(CodeUnknownSubject, "Not authorized, user not found")
	ErrAccountDisabled    = Unauthorized(CodeAccountDisabled, "Account is deactivated")
	ErrInvalidCredentials = Unauthorized(CodeInvalidCredentials, "Invalid credentials")
	ErrAdminRequired      = Forbidden(CodeAdminRequired, "Access denied. Admin only.")
	ErrSelfModification   = Forbidden(CodeSelfModification, "You cannot perform this action on your own account")
	ErrLastAddress        = Validation(CodeLastAddress, "Cannot delete the only address")
	ErrWeakPassword       = Validation(CodeWeakPassword, "Password must be at least 6 characters")
	ErrInvalidReminder    = Validation(CodeInvalidReminder, "Reminder date must be before due date")
	ErrInvalidDueDate     = Validation(CodeInvalidDueDate, "Due date cannot be in the past")
	ErrQueryTooShort      = Validation(CodeQueryTooShort, "Search query must be at least 2 characters")
	ErrInvalidID          = Validation(CodeInvalidID, "Invalid id")
)
