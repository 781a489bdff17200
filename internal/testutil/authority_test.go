package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/remote"
)

func TestFakeAuthorityAppliesTransitions(t *testing.T) {
	a := NewFakeAuthority()
	a.Seed(SnapshotFixture("PKG-AB12-20240101", model.StateSubmitted, model.DeliveryDoorstep))

	res, err := a.SubmitAction(context.Background(), remote.ActionRequest{
		Code: "PKG-AB12-20240101", Action: model.ActionCollect, Token: "tok-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateInTransit, res.NewState)
	assert.False(t, res.AlreadyApplied)
	assert.Equal(t, 1, a.Transitions["PKG-AB12-20240101"])
}

func TestFakeAuthorityTokenIdempotency(t *testing.T) {
	a := NewFakeAuthority()
	a.Seed(SnapshotFixture("PKG-AB12-20240101", model.StateSubmitted, model.DeliveryDoorstep))
	ctx := context.Background()

	req := remote.ActionRequest{Code: "PKG-AB12-20240101", Action: model.ActionCollect, Token: "tok-1"}

	first, err := a.SubmitAction(ctx, req)
	require.NoError(t, err)

	// Same token again: original result, no second transition, even though
	// collect is no longer legal from in_transit.
	second, err := a.SubmitAction(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.NewState, second.NewState)
	assert.True(t, second.AlreadyApplied)
	assert.Equal(t, 1, a.Transitions["PKG-AB12-20240101"])
}

func TestFakeAuthorityRejectsIllegalTransition(t *testing.T) {
	a := NewFakeAuthority()
	a.Seed(SnapshotFixture("PKG-AB12-20240101", model.StateDelivered, model.DeliveryDoorstep))

	_, err := a.SubmitAction(context.Background(), remote.ActionRequest{
		Code: "PKG-AB12-20240101", Action: model.ActionCollect, Token: "tok-1",
	})
	require.Error(t, err)
	assert.True(t, remote.IsApplicationError(err))
	assert.Zero(t, a.Transitions["PKG-AB12-20240101"])
}

func TestFakeAuthorityFetchNotFound(t *testing.T) {
	a := NewFakeAuthority()
	_, err := a.FetchPackage(context.Background(), "PKG-NOPE-20240101")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestManualSignalEmitsTransitionsOnly(t *testing.T) {
	s := NewManualSignal(false)
	assert.False(t, s.Online())

	s.SetOnline(true)
	s.SetOnline(true) // no change, no event

	select {
	case online := <-s.Events():
		assert.True(t, online)
	default:
		t.Fatal("expected a transition event")
	}

	select {
	case <-s.Events():
		t.Fatal("unchanged state should not emit")
	default:
	}
}
