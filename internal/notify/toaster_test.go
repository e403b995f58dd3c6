package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToaster_ShowAndDismiss(t *testing.T) {
	sut := NewToaster(time.Minute)

	sut.ItemAdded("Clearview Planner")

	toast := sut.Current()
	require.NotNil(t, toast)
	assert.Equal(t, "Clearview Planner added to your selection", toast.Message)
	assert.Equal(t, "Clearview Planner", toast.Item)

	sut.Dismiss()
	assert.Nil(t, sut.Current())
}

func TestToaster_AutoDismiss(t *testing.T) {
	sut := NewToaster(20 * time.Millisecond)

	sut.ItemAdded("Habit Tracker")
	require.NotNil(t, sut.Current())

	assert.Eventually(t, func() bool {
		return sut.Current() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestToaster_NewToastReplacesCurrent(t *testing.T) {
	sut := NewToaster(time.Minute)

	sut.ItemAdded("First")
	sut.ItemAdded("Second")

	toast := sut.Current()
	require.NotNil(t, toast)
	assert.Equal(t, "Second", toast.Item)
}

func TestToaster_DismissWithoutToast(t *testing.T) {
	sut := NewToaster(time.Minute)

	sut.Dismiss()
	assert.Nil(t, sut.Current())
}
