package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to chat actors and to the ops API.
const (
	CodeBlocked             = "BLOCKED"
	CodeOpenTicketExists    = "OPEN_TICKET_EXISTS"
	CodeUnknownCategory     = "UNKNOWN_CATEGORY"
	CodeNotStaff            = "NOT_STAFF"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAlreadyClaimed      = "ALREADY_CLAIMED"
	CodeAlreadyClosed       = "ALREADY_CLOSED"
	CodeNotClosed           = "NOT_CLOSED"
	CodeAlreadyRated        = "ALREADY_RATED"
	CodeInvalidRating       = "INVALID_RATING"
	CodeRatingExpired       = "RATING_EXPIRED"
	CodeNotTicketChannel    = "NOT_TICKET_CHANNEL"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_FAILED"
	CodeChannelCreateFailed = "CHANNEL_CREATE_FAILED"
	CodeArchiveFailed       = "ARCHIVE_FAILED"
	CodePlatformFailed      = "PLATFORM_FAILED"
	CodeInconsistentState   = "INCONSISTENT_STATE"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewRejection reports a failed precondition. The message is shown to the requester as is.
func NewRejection(code, message string) error {
	return NewDomainError(code, message, http.StatusUnprocessableEntity, nil)
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewCollaboratorFailure reports a platform call that prevented the action from proceeding.
func NewCollaboratorFailure(code, message string, err error) error {
	return &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusFailedDependency,
		Err:        err,
	}
}

// NewInconsistentState reports a ticket record that disagrees with the channel it belongs to.
func NewInconsistentState(err error, details map[string]any) error {
	return &DomainError{
		Code:       CodeInconsistentState,
		Message:    "This ticket is in an inconsistent state. Please contact an admin.",
		HTTPStatus: http.StatusConflict,
		Details:    details,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Something went wrong while handling this action.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Something went wrong while handling this action.",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsRejection reports whether err is an expected outcome rather than a system fault.
func IsRejection(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.HTTPStatus < http.StatusInternalServerError
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func MapError(err error) error {
	return ToDomainError(err)
}
