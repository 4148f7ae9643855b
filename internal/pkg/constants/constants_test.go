package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(CreateTradeRequest, Investor))
	assert.False(t, AllowedRole(CreateTradeRequest, Employee))
	assert.True(t, AllowedRole(ConfirmTradeRequest, Employee))
	assert.False(t, AllowedRole(ConfirmTradeRequest, Investor))
	assert.False(t, AllowedRole(DeleteTradeRequest, Employee))
	assert.True(t, AllowedRole(DeleteTradeRequest, Superadmin))
	assert.False(t, AllowedRole("unknown", Admin))
}

func TestEveryPermissionHasRoles(t *testing.T) {
	for perm, roles := range PermissionRoles {
		assert.NotEmpty(t, roles, perm)
		for _, r := range roles {
			assert.True(t, IsValidRole(r), "%s grants unknown role %s", perm, r)
		}
	}
}

func TestIsStaff(t *testing.T) {
	assert.False(t, IsStaff(Investor))
	assert.True(t, IsStaff(Employee))
	assert.True(t, IsStaff(Admin))
	assert.False(t, IsStaff(""))
}
