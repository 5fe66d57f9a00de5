package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Ordering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleCouncilMember))
	assert.True(t, RoleCouncilMember.AtLeast(RoleCollector))
	assert.True(t, RoleCollector.AtLeast(RoleAgent))
	assert.True(t, RoleAgent.AtLeast(RoleCitizen))
	assert.True(t, RoleCollector.AtLeast(RoleCollector))

	assert.False(t, RoleAgent.AtLeast(RoleCollector))
	assert.False(t, RoleCitizen.AtLeast(RoleAgent))
	assert.False(t, Role("guest").AtLeast(RoleCitizen))
	assert.Equal(t, 0, Role("guest").Level())
}

func TestParseRole_LegacyNames(t *testing.T) {
	tests := map[string]Role{
		"percepteur":        RoleCollector,
		"membre":            RoleCouncilMember,
		"Membre du conseil": RoleCouncilMember,
		"ADMIN":             RoleAdmin,
		"agent":             RoleAgent,
		"citizen":           RoleCitizen,
	}

	for input, want := range tests {
		got, err := ParseRole(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseRole("mayor")
	assert.Error(t, err)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("virement")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodBankTransfer, m)

	m, err = ParsePaymentMethod("cash")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, m)

	_, err = ParsePaymentMethod("barter")
	assert.Error(t, err)
}
