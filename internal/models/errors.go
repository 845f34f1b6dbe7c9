package models

import (
	"errors"
	"fmt"
)

// Error codes. Each maps to one HTTP status per endpoint family in the server package.
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeFileMissing        = "FILE_MISSING"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeStorageFailure     = "STORAGE_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Client-facing msg values.
const (
	MsgNotAuthenticated       = "not-authenticated"
	MsgNotAuthorized          = "not-authorized"
	MsgMissingFields          = "missing-fields"
	MsgMissingOrInvalidFields = "missing-or-invalid-fields"
	MsgFileRequired           = "file-required"
	MsgFileTooLarge           = "file-too-large"
	MsgInvalidFileType        = "invalid-file-type"
	MsgInvalidState           = "invalid-state"
	MsgInvalidDates           = "invalid-dates"
	MsgMissingResourceID      = "missing-resource-id"
	MsgMissingEvaluationID    = "missing-evaluation-id"
	MsgVariantNotFound        = "variant-not-found"
	MsgResourceNotFound       = "resource-not-found"
	MsgSubscriptionNotFound   = "subscription-not-found"
	MsgMembershipNotFound     = "user-variant-not-found"
	MsgEvaluationNotFound     = "evaluation-not-found"
	MsgEvaluationsNotFound    = "evaluations-not-found"
	MsgNoSubjectsFound        = "no-subjects-found"
	MsgNoVariantsFound        = "no-variants-found"
	MsgFileMissing            = "file-missing"
	MsgAlreadySubscribed      = "already-subscribed"
	MsgMembershipExists       = "user-variant-already-exists"
	MsgUsernameTaken          = "username-taken"
	MsgInvalidCredentials     = "invalid-credentials"
	MsgStorageFailure         = "storage-failure"
	MsgServerError            = "server-error"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Msg     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	text := e.Message
	if text == "" {
		text = e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", text, e.Err)
	}
	return text
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code and msg so callers can use errors.Is against the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Msg == t.Msg
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotAuthenticated     = &AppError{Code: CodeNotAuthenticated, Msg: MsgNotAuthenticated}
	ErrNotAuthorized        = &AppError{Code: CodeNotAuthorized, Msg: MsgNotAuthorized}
	ErrMissingFields        = &AppError{Code: CodeValidation, Msg: MsgMissingFields}
	ErrInvalidRole          = &AppError{Code: CodeValidation, Msg: MsgMissingOrInvalidFields}
	ErrUnknownUser          = &AppError{Code: CodeValidation, Msg: MsgMissingOrInvalidFields, Message: "user does not exist"}
	ErrFileRequired         = &AppError{Code: CodeValidation, Msg: MsgFileRequired}
	ErrFileTooLarge         = &AppError{Code: CodeValidation, Msg: MsgFileTooLarge}
	ErrInvalidFileType      = &AppError{Code: CodeValidation, Msg: MsgInvalidFileType}
	ErrInvalidState         = &AppError{Code: CodeValidation, Msg: MsgInvalidState}
	ErrInvalidDates         = &AppError{Code: CodeValidation, Msg: MsgInvalidDates}
	ErrMissingResourceID    = &AppError{Code: CodeValidation, Msg: MsgMissingResourceID}
	ErrMissingEvaluationID  = &AppError{Code: CodeValidation, Msg: MsgMissingEvaluationID}
	ErrVariantNotFound      = &AppError{Code: CodeNotFound, Msg: MsgVariantNotFound}
	ErrResourceNotFound     = &AppError{Code: CodeNotFound, Msg: MsgResourceNotFound}
	ErrSubscriptionNotFound = &AppError{Code: CodeNotFound, Msg: MsgSubscriptionNotFound}
	ErrMembershipNotFound   = &AppError{Code: CodeNotFound, Msg: MsgMembershipNotFound}
	ErrEvaluationNotFound   = &AppError{Code: CodeNotFound, Msg: MsgEvaluationNotFound}
	ErrNoSubjectsFound      = &AppError{Code: CodeNotFound, Msg: MsgNoSubjectsFound}
	ErrNoVariantsFound      = &AppError{Code: CodeNotFound, Msg: MsgNoVariantsFound}
	ErrFileMissing          = &AppError{Code: CodeFileMissing, Msg: MsgFileMissing}
	ErrAlreadySubscribed    = &AppError{Code: CodeConflict, Msg: MsgAlreadySubscribed}
	ErrMembershipExists     = &AppError{Code: CodeConflict, Msg: MsgMembershipExists}
	ErrUsernameTaken        = &AppError{Code: CodeConflict, Msg: MsgUsernameTaken}
	ErrInvalidCredentials   = &AppError{Code: CodeInvalidCredentials, Msg: MsgInvalidCredentials}
)

// NewNotFoundError reports an absent entity with the given msg.
func NewNotFoundError(msg string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Msg:     msg,
		Message: fmt.Sprintf("%s (id %v)", msg, id),
	}
}

// NewValidationError reports missing or invalid input with the given msg.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code: CodeValidation,
		Msg:  msg,
	}
}

// NewConflictError reports a uniqueness conflict with the given msg.
func NewConflictError(msg string, err error) *AppError {
	return &AppError{
		Code: CodeConflict,
		Msg:  msg,
		Err:  err,
	}
}

// NewForbiddenError reports an authenticated caller lacking the required role.
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeNotAuthorized,
		Msg:     MsgNotAuthorized,
		Message: message,
	}
}

// NewStorageError wraps a blob storage I/O failure.
func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    CodeStorageFailure,
		Msg:     MsgStorageFailure,
		Message: "storage failure",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Msg:     MsgServerError,
		Message: "Internal server error",
		Err:     err,
	}
}

// AsAppError extracts an AppError from err, wrapping anything else as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}
