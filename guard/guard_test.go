package guard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chamapesa/go-chama-client/guard"
	"github.com/chamapesa/go-chama-client/users"
)

type fakeState struct {
	user *users.User
}

func (fs fakeState) CurrentUser() *users.User {
	return fs.user
}

func TestCheckDecisionTable(t *testing.T) {
	member := &users.User{ID: 1, Username: "alice", Role: users.RoleMember}
	admin := &users.User{ID: 2, Username: "grace", Role: users.RoleAdmin}
	superAdmin := &users.User{ID: 3, Username: "root", Role: users.RoleSuperAdmin}

	tests := []struct {
		name     string
		user     *users.User
		roles    []users.Role
		expected guard.Decision
	}{
		{"no user, unrestricted view", nil, nil, guard.RedirectLogin},
		{"no user, admin view", nil, []users.Role{users.RoleAdmin}, guard.RedirectLogin},
		{"member, unrestricted view", member, nil, guard.Allow},
		{"member, admin view", member, []users.Role{users.RoleAdmin}, guard.RedirectUnauthorized},
		{"member, admin-or-superadmin view", member, []users.Role{users.RoleAdmin, users.RoleSuperAdmin}, guard.RedirectUnauthorized},
		{"admin, admin view", admin, []users.Role{users.RoleAdmin}, guard.Allow},
		{"superadmin, admin-or-superadmin view", superAdmin, []users.Role{users.RoleAdmin, users.RoleSuperAdmin}, guard.Allow},
		{"superadmin, admin-only view", superAdmin, []users.Role{users.RoleAdmin}, guard.RedirectUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := guard.Check(fakeState{user: tc.user}, "/dashboard", tc.roles...)
			require.Equal(t, tc.expected, outcome.Decision)
		})
	}
}

func TestRedirectLoginRemembersLocation(t *testing.T) {
	outcome := guard.Check(fakeState{}, "/groups/42/contributions")
	require.Equal(t, guard.RedirectLogin, outcome.Decision)
	require.Equal(t, "/groups/42/contributions", outcome.ReturnTo)
}

func TestUnauthorizedDoesNotLeakReturnLocation(t *testing.T) {
	member := &users.User{ID: 1, Role: users.RoleMember}
	outcome := guard.Check(fakeState{user: member}, "/admin/users", users.RoleAdmin)
	require.Equal(t, guard.RedirectUnauthorized, outcome.Decision)
	require.Empty(t, outcome.ReturnTo)
}
