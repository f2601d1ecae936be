package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	ErrCodeInternal              = "INTERNAL_ERROR"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeConflict              = "CONFLICT"
	ErrCodeConsultationNotFound  = "CONSULTATION_NOT_FOUND"
	ErrCodeConsultationNotOpen   = "CONSULTATION_NOT_OPEN"
	ErrCodeConsultationClosed    = "CONSULTATION_CLOSED"
	ErrCodeNotPending            = "CONSULTATION_NOT_PENDING"
	ErrCodeCallNotFound          = "CALL_NOT_FOUND"
	ErrCodeCallEnded             = "CALL_ENDED"
	ErrCodeCallInProgress        = "CALL_IN_PROGRESS"
	ErrCodeNotParticipant        = "NOT_A_PARTICIPANT"
	ErrCodeDownstreamUnavailable = "DOWNSTREAM_UNAVAILABLE"
)

// AppError carries an API error code and HTTP status alongside the
// underlying cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Err: err}
}

func InternalError(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "internal server error", http.StatusInternalServerError)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest)
}

func ValidationErrorWithDetails(message string, details any) *AppError {
	e := ValidationError(message)
	e.Details = details
	return e
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

func NotFoundError(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ConflictError(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

func ConsultationNotFoundError() *AppError {
	return New(ErrCodeConsultationNotFound, "consultation not found", http.StatusNotFound)
}

// ConsultationNotOpenError rejects operations that need a live
// (pending or active) consultation.
func ConsultationNotOpenError() *AppError {
	return New(ErrCodeConsultationNotOpen, "consultation is closed", http.StatusConflict)
}

func ConsultationClosedError() *AppError {
	return New(ErrCodeConsultationClosed, "consultation is already closed", http.StatusConflict)
}

// NotPendingError rejects an accept on a consultation that has already
// been accepted or closed.
func NotPendingError() *AppError {
	return New(ErrCodeNotPending, "consultation is not pending", http.StatusConflict)
}

func CallNotFoundError() *AppError {
	return New(ErrCodeCallNotFound, "call not found", http.StatusNotFound)
}

func CallEndedError() *AppError {
	return New(ErrCodeCallEnded, "call has already ended", http.StatusConflict)
}

// CallInProgressError rejects a second call while one is still live on
// the same consultation.
func CallInProgressError() *AppError {
	return New(ErrCodeCallInProgress, "a call is already in progress for this consultation", http.StatusConflict)
}

func NotParticipantError() *AppError {
	return New(ErrCodeNotParticipant, "user is not a participant of this consultation", http.StatusForbidden)
}

func DownstreamUnavailableError(service string, err error) *AppError {
	return Wrap(err, ErrCodeDownstreamUnavailable, fmt.Sprintf("%s is unavailable", service), http.StatusBadGateway)
}

// AsAppError extracts an *AppError from err's chain, wrapping unknown
// errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err)
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
