package workstore

import (
	"errors"
	"fmt"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrWorkItemNotFound indicates that the requested work item does not exist.
	ErrWorkItemNotFound = fmt.Errorf("%w: work item", ErrNotFound)

	// ErrDuplicateWorkItem is returned when inserting an item whose ID is
	// already present.
	ErrDuplicateWorkItem = errors.New("work item already exists")
)
