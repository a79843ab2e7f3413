package auth_test

import (
	"testing"

	auth "github.com/mercatohq/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  auth.Role
		ok    bool
	}{
		{"buyer", auth.RoleBuyer, true},
		{"seller", auth.RoleSeller, true},
		{"admin", auth.RoleAdmin, true},
		{"", "", false},
		{"superuser", "", false},
		{"Admin", "", false},
	}

	for _, tc := range tests {
		role, ok := auth.ParseRole(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.want, role, tc.input)
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range auth.AllRoles() {
		assert.True(t, auth.IsValidRole(role))
	}
	assert.False(t, auth.IsValidRole(""))
	assert.False(t, auth.IsValidRole("root"))
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, auth.RoleAtLeast(auth.RoleAdmin, auth.RoleSeller))
	assert.True(t, auth.RoleAtLeast(auth.RoleSeller, auth.RoleSeller))
	assert.True(t, auth.RoleAtLeast(auth.RoleSeller, auth.RoleBuyer))
	assert.False(t, auth.RoleAtLeast(auth.RoleBuyer, auth.RoleSeller))
	assert.False(t, auth.RoleAtLeast("", auth.RoleBuyer))
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/admin", auth.DashboardPath(auth.RoleAdmin))
	assert.Equal(t, "/seller", auth.DashboardPath(auth.RoleSeller))
	assert.Equal(t, "/", auth.DashboardPath(auth.RoleBuyer))
	// anything unknown lands on the storefront
	assert.Equal(t, "/", auth.DashboardPath(""))
}

func TestRoleAllowed(t *testing.T) {
	assert.True(t, auth.RoleAllowed(auth.RoleBuyer, nil))
	assert.True(t, auth.RoleAllowed(auth.RoleBuyer, []auth.Role{}))
	assert.True(t, auth.RoleAllowed(auth.RoleAdmin, []auth.Role{auth.RoleSeller, auth.RoleAdmin}))
	assert.False(t, auth.RoleAllowed(auth.RoleBuyer, []auth.Role{auth.RoleAdmin}))
}

func TestPrincipalRoleHint(t *testing.T) {
	assert.Empty(t, auth.Principal{}.RoleHint())
	assert.Empty(t, auth.Principal{Metadata: map[string]any{"role": "root"}}.RoleHint())
	assert.Empty(t, auth.Principal{Metadata: map[string]any{"role": 7}}.RoleHint())
	assert.Equal(t, auth.RoleSeller, auth.Principal{Metadata: map[string]any{"role": "seller"}}.RoleHint())
}
