package apperrors

import "errors"

// Sentinel errors for the conversational core.
var (
	// Authorization errors: surfaced as a blocking message, never retried.
	ErrNotConversationMember = errors.New("user is not a member of this conversation")
	ErrAdminRequired         = errors.New("conversation admin role required")
	ErrPermissionDenied      = errors.New("permission denied")

	// Validation errors: rejected before any storage write.
	ErrValidationFailed = errors.New("validation failed")
	ErrEmptyMessage     = errors.New("message must carry a body or media")
	ErrInvalidMedia     = errors.New("invalid media reference")

	// Resource errors.
	ErrResourceNotFound = errors.New("resource not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrConflict         = errors.New("conflict")

	// Transient storage errors: the delivery pipeline keeps the payload
	// retryable; typing/presence writes are silently dropped instead.
	ErrTransientStorage = errors.New("transient storage failure")

	// Stale read errors: degrade to a placeholder, never fail the view.
	ErrStaleRead = errors.New("stale read")

	// Token errors from the identity collaborator.
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")
)

// CustomError wraps a sentinel with user-facing context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewAuthorizationError creates an error for a viewer outside the
// conversation's membership set
func NewAuthorizationError(message string) error {
	return &CustomError{Err: ErrNotConversationMember, Message: message}
}

// NewForbiddenError creates an error for an authorized member lacking a role
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewValidationError creates an error for input rejected before storage
func NewValidationError(message string) error {
	return &CustomError{Err: ErrValidationFailed, Message: message}
}

// NewEmptyMessageError creates an error for a message with no body and no media
func NewEmptyMessageError(message string) error {
	return &CustomError{Err: ErrEmptyMessage, Message: message}
}

// NewInvalidMediaError creates an error for an unusable media reference
func NewInvalidMediaError(message string) error {
	return &CustomError{Err: ErrInvalidMedia, Message: message}
}

// NewAdminRequiredError creates an error for an operation reserved to admins
func NewAdminRequiredError(message string) error {
	return &CustomError{Err: ErrAdminRequired, Message: message}
}

// NewConflictError creates an error for a request colliding with existing state
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewResourceNotFoundError creates an error for a missing entity
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewTransientError marks a storage failure as retryable
func NewTransientError(message string) error {
	return &CustomError{Err: ErrTransientStorage, Message: message}
}
