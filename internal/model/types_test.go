package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateValidity(t *testing.T) {
	for _, s := range ValidStates {
		assert.True(t, s.IsValid(), "state %s", s)
	}
	assert.False(t, PackageState("shipped").IsValid())
	assert.False(t, PackageState("").IsValid())
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateRejected.IsTerminal())
	assert.True(t, StateCollected.IsTerminal())

	for _, s := range []PackageState{StatePendingUnpaid, StatePending, StateSubmitted, StateInTransit, StateDelivered} {
		assert.False(t, s.IsTerminal(), "state %s", s)
	}
}

func TestRoleValidity(t *testing.T) {
	for _, r := range ValidRoles {
		assert.True(t, r.IsValid(), "role %s", r)
	}
	assert.False(t, Role("driver").IsValid())
}

func TestDeliveryTypeValidity(t *testing.T) {
	for _, d := range ValidDeliveryTypes {
		assert.True(t, d.IsValid(), "delivery type %s", d)
	}
	assert.False(t, DeliveryType("drone").IsValid())
}
