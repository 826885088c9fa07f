package models

import "errors"

// Common domain errors for edit-queue and session operations.
var (
	// ErrEditNotFound indicates a referenced edit id does not exist in the queue.
	ErrEditNotFound = errors.New("edit not found")

	// ErrSessionNotFound indicates a session does not exist in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoEditQueue indicates no edit queue has been initialized for the session.
	ErrNoEditQueue = errors.New("no edit queue found")

	// ErrMissingVideoURL indicates no video URL could be resolved from
	// arguments or session state.
	ErrMissingVideoURL = errors.New("no video URL found in context or parameters")

	// ErrUnknownEditType indicates a queue entry has a type the render
	// dispatcher does not recognize.
	ErrUnknownEditType = errors.New("unknown edit type")

	// ErrAppNameRequired indicates a required app name field is empty.
	ErrAppNameRequired = errors.New("app_name is required")

	// ErrUserIDRequired indicates a required user id field is empty.
	ErrUserIDRequired = errors.New("user_id is required")

	// ErrSessionIDRequired indicates a required session id field is empty.
	ErrSessionIDRequired = errors.New("session_id is required")
)
