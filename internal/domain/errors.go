package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyWorkItemID is returned when a work item is created without an ID.
	ErrEmptyWorkItemID = errors.New("work item ID cannot be empty")

	// ErrEmptyTopic is returned when a generation input has no topic.
	ErrEmptyTopic = errors.New("generation input topic cannot be empty")

	// ErrInvalidStatus is returned when a status value is not a known WorkItemStatus.
	ErrInvalidStatus = errors.New("invalid work item status")

	// ErrIllegalTransition is returned when a status change would violate
	// the work item state machine (e.g. completed straight back to running).
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrDuplicateJobHandle is returned when a second live job handle would
	// be registered for the same work item.
	ErrDuplicateJobHandle = errors.New("work item already has a live job handle")
)
