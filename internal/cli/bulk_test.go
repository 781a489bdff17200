package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/testutil"
)

func TestBulkCommandApplied(t *testing.T) {
	authority := testutil.NewFakeAuthority()
	for _, code := range []string{"PKG-A1-20240101", "PKG-B2-20240101"} {
		authority.Seed(testutil.SnapshotFixture(code, model.StateSubmitted, model.DeliveryDoorstep))
	}
	opts := testOptions(t, authority, false)
	opts.OperatorRole = "warehouse"

	resp, err := runCommand(t, NewBulkCommand(opts), "collect", "PKG-A1-20240101", "PKG-B2-20240101")
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["successful"])
	assert.Equal(t, float64(0), data["failed"])
}

func TestBulkCommandPartialFailureExitCode(t *testing.T) {
	authority := testutil.NewFakeAuthority()
	authority.Seed(testutil.SnapshotFixture("PKG-A1-20240101", model.StateSubmitted, model.DeliveryDoorstep))
	authority.Seed(testutil.SnapshotFixture("PKG-B2-20240101", model.StateDelivered, model.DeliveryDoorstep))
	opts := testOptions(t, authority, false)
	opts.OperatorRole = "warehouse"

	resp, err := runCommand(t, NewBulkCommand(opts), "collect", "PKG-A1-20240101", "PKG-B2-20240101")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["successful"])
	assert.Equal(t, float64(1), data["failed"])
}

func TestBulkCommandOfflineQueues(t *testing.T) {
	opts := testOptions(t, testutil.NewFakeAuthority(), true)
	opts.OperatorRole = "warehouse"
	for _, code := range []string{"PKG-A1-20240101", "PKG-B2-20240101"} {
		seedCache(t, opts.Database, testutil.SnapshotFixture(code, model.StateSubmitted, model.DeliveryDoorstep))
	}

	resp, err := runCommand(t, NewBulkCommand(opts), "collect", "PKG-A1-20240101", "PKG-B2-20240101")
	require.NoError(t, err)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["queued"])
}

func TestBulkCommandArgCount(t *testing.T) {
	opts := testOptions(t, testutil.NewFakeAuthority(), false)

	_, err := runCommand(t, NewBulkCommand(opts), "collect")
	require.Error(t, err)
}
