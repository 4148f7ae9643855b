package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatusTransitions(t *testing.T) {
	all := []RequestStatus{StatusPending, StatusApproved, StatusCheckPayment, StatusConfirmed, StatusRejected}
	allowed := map[[2]RequestStatus]bool{
		{StatusPending, StatusApproved}:       true,
		{StatusPending, StatusRejected}:       true,
		{StatusApproved, StatusCheckPayment}:  true,
		{StatusApproved, StatusRejected}:      true,
		{StatusApproved, StatusConfirmed}:     true,
		{StatusCheckPayment, StatusRejected}:  true,
		{StatusCheckPayment, StatusConfirmed}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]RequestStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestRequestStatusFlags(t *testing.T) {
	assert.True(t, StatusConfirmed.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, RequestStatus("bogus").Terminal())

	assert.True(t, StatusApproved.Confirmable())
	assert.True(t, StatusCheckPayment.Confirmable())
	assert.False(t, StatusPending.Confirmable())
	assert.False(t, StatusConfirmed.Confirmable())
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionApproved, ActionFor(StatusApproved))
	assert.Equal(t, ActionRejected, ActionFor(StatusRejected))
	assert.Equal(t, ActionConfirmed, ActionFor(StatusConfirmed))
	assert.Equal(t, ActionUpdated, ActionFor(StatusCheckPayment))
}
