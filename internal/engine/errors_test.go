package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/juakali/scanflow/internal/model"
)

func TestScanErrorMessages(t *testing.T) {
	err := NewIllegalTransitionError("PKG-AB12-20240101", model.StateDelivered, model.RoleRider, model.ActionDeliver)
	assert.Contains(t, err.Error(), "ILLEGAL_TRANSITION")
	assert.Contains(t, err.Error(), "PKG-AB12-20240101")
	assert.Contains(t, err.Error(), "deliver")

	assert.Contains(t, NewNoCachedDataError("PKG-AB12-20240101").Error(), "NO_CACHED_DATA")
	assert.Contains(t, NewQueueFullError("PKG-AB12-20240101", 500).Error(), "500")
}

func TestScanErrorPredicates(t *testing.T) {
	assert.True(t, IsNoCachedData(NewNoCachedDataError("PKG-AB12-20240101")))
	assert.True(t, IsQueueFull(NewQueueFullError("PKG-AB12-20240101", 500)))
	assert.False(t, IsNoCachedData(NewQueueFullError("PKG-AB12-20240101", 500)))
	assert.False(t, IsQueueFull(errors.New("plain")))
}

func TestScanErrorPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer context: %w", NewNoCachedDataError("PKG-AB12-20240101"))
	assert.True(t, IsNoCachedData(wrapped))
	assert.True(t, HasScanCode(wrapped, ErrCodeNoCachedData))
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("insert pending", cause)
	assert.True(t, HasScanCode(err, ErrCodeStorage))
	assert.ErrorIs(t, err, cause)
}
