package apperrors

import "errors"

// Sentinel errors shared by services, handlers and the websocket relay.
// Check them with errors.Is; services wrap them with context.
var (
	// ErrNotFound indicates the referenced entity does not exist or does not
	// satisfy the status/ownership predicate of the operation.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidState indicates the entity is in a terminal or incompatible state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates the input failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrForbidden indicates valid credentials without access to the resource.
	ErrForbidden = errors.New("forbidden")
)
