package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(UnlockLeads, Agent))
	assert.False(t, AllowedRole(UnlockLeads, Admin))
	assert.True(t, AllowedRole(ResolveReports, Admin))
	assert.False(t, AllowedRole(ResolveReports, Agent))
	assert.True(t, AllowedRole(ViewLeads, Admin))
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
