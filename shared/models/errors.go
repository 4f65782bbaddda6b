package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound      = errors.New("resource not found")
	ErrDraftNotFound = errors.New("draft not found")

	// Authentication
	ErrUnauthorized = errors.New("authentication required")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Wizard & Draft Errors
	ErrGenerationInProgress = errors.New("generation is already in progress for this session")
	ErrInvalidDraftState    = errors.New("draft is not in a state that allows this operation")
	ErrStepUnavailable      = errors.New("requested step is not reachable from the current step")
	ErrIntentNotSelected    = errors.New("intent has not been selected yet")
	ErrNoPendingSession     = errors.New("no recoverable session found")

	// Promotion Errors
	ErrEmptyCollection = errors.New("collection must contain at least one item")

	// General Request/Server Errors
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidInput = errors.New("invalid input data")
)
