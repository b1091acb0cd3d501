package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkItem(t *testing.T) {
	t.Parallel()

	t.Run("valid item", func(t *testing.T) {
		t.Parallel()

		item, err := NewWorkItem("row-1", GenerationInput{Topic: "solar panels"})
		require.NoError(t, err)
		assert.Equal(t, "row-1", item.ID)
		assert.Equal(t, StatusIdle, item.Status)
		assert.False(t, item.CreatedAt.IsZero())
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()

		_, err := NewWorkItem("", GenerationInput{Topic: "solar panels"})
		assert.ErrorIs(t, err, ErrEmptyWorkItemID)
	})

	t.Run("empty topic", func(t *testing.T) {
		t.Parallel()

		_, err := NewWorkItem("row-1", GenerationInput{})
		assert.ErrorIs(t, err, ErrEmptyTopic)
	})
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	legal := []struct{ from, to WorkItemStatus }{
		{StatusIdle, StatusQueued},
		{StatusQueued, StatusRunning},
		{StatusQueued, StatusIdle},
		{StatusRunning, StatusCompleted},
		{StatusRunning, StatusError},
		{StatusRunning, StatusQueued}, // cancellation revert
		{StatusRunning, StatusIdle},
		{StatusCompleted, StatusQueued}, // reset-for-retry
		{StatusError, StatusQueued},
		{StatusQueued, StatusQueued}, // self-transition is a no-op
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s → %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to WorkItemStatus }{
		{StatusCompleted, StatusRunning}, // completed never silently runs again
		{StatusCompleted, StatusError},
		{StatusCompleted, StatusIdle},
		{StatusError, StatusCompleted},
		{StatusError, StatusRunning},
		{StatusIdle, StatusCompleted},
		{StatusIdle, StatusError},
		{StatusQueued, StatusCompleted},
		{StatusQueued, StatusError},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s → %s should be illegal", tc.from, tc.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())

	assert.True(t, StatusIdle.IsResumable())
	assert.True(t, StatusQueued.IsResumable())
	assert.False(t, StatusRunning.IsResumable())
	assert.False(t, StatusCompleted.IsResumable())
}
