package guard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
)

func snapshotFor(t *testing.T, role entity.Role) rbac.Snapshot {
	t.Helper()

	snap, err := rbac.SnapshotFor(entity.UserAccount{Role: role})
	require.NoError(t, err)

	return snap
}

func TestNew_RejectsBadTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		routes []guard.Route
	}{
		{
			name: "Missing login route",
			routes: []guard.Route{
				{Path: guard.PathUnauthorized},
			},
		},
		{
			name: "Protected login route",
			routes: []guard.Route{
				{Path: guard.PathLogin, Protected: true},
				{Path: guard.PathUnauthorized},
			},
		},
		{
			name: "Duplicate path",
			routes: []guard.Route{
				{Path: guard.PathLogin},
				{Path: guard.PathLogin},
				{Path: guard.PathUnauthorized},
			},
		},
		{
			name: "Role without table entry",
			routes: []guard.Route{
				{Path: guard.PathLogin},
				{Path: guard.PathUnauthorized},
				{Path: "/x", Protected: true, Roles: []entity.Role{entity.Role("superuser")}},
			},
		},
		{
			name: "Empty path",
			routes: []guard.Route{
				{Path: ""},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := guard.New(test.routes)
			require.Error(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	g, err := guard.New(guard.DefaultRoutes())
	require.NoError(t, err)

	admin := snapshotFor(t, entity.RoleAdmin)
	client := snapshotFor(t, entity.RoleClient)

	tests := []struct {
		name         string
		path         string
		sessionValid bool
		snap         rbac.Snapshot
		decision     guard.Decision
		redirect     string
	}{
		{
			name:         "Public route needs nothing",
			path:         guard.PathLogin,
			sessionValid: false,
			snap:         rbac.Anonymous(),
			decision:     guard.DecisionAuthorized,
		},
		{
			name:         "Protected route without session redirects to login",
			path:         guard.PathDashboard,
			sessionValid: false,
			snap:         rbac.Anonymous(),
			decision:     guard.DecisionUnauthenticated,
			redirect:     guard.PathLogin,
		},
		{
			name:         "Client on the admin dashboard is forbidden",
			path:         guard.PathAdminDashboard,
			sessionValid: true,
			snap:         client,
			decision:     guard.DecisionForbidden,
			redirect:     guard.PathUnauthorized,
		},
		{
			name:         "Admin on the admin dashboard is authorized",
			path:         guard.PathAdminDashboard,
			sessionValid: true,
			snap:         admin,
			decision:     guard.DecisionAuthorized,
		},
		{
			name:         "Admin does not satisfy the employee dashboard",
			path:         guard.PathEmployeeDashboard,
			sessionValid: true,
			snap:         admin,
			decision:     guard.DecisionForbidden,
			redirect:     guard.PathUnauthorized,
		},
		{
			name:         "Roleless protected route admits any session",
			path:         guard.PathDashboard,
			sessionValid: true,
			snap:         client,
			decision:     guard.DecisionAuthorized,
		},
		{
			name:         "Loading session is indeterminate, not denied",
			path:         guard.PathDashboard,
			sessionValid: true,
			snap:         rbac.Loading(),
			decision:     guard.DecisionIndeterminate,
		},
		{
			name:         "Errored session passes roleless protected routes",
			path:         guard.PathDashboard,
			sessionValid: true,
			snap:         rbac.Errored(),
			decision:     guard.DecisionAuthorized,
		},
		{
			name:         "Errored session is forbidden on role routes",
			path:         guard.PathClientDashboard,
			sessionValid: true,
			snap:         rbac.Errored(),
			decision:     guard.DecisionForbidden,
			redirect:     guard.PathUnauthorized,
		},
		{
			name:         "Unmatched path without session goes to login",
			path:         "/nowhere",
			sessionValid: false,
			snap:         rbac.Anonymous(),
			decision:     guard.DecisionUnauthenticated,
			redirect:     guard.PathLogin,
		},
		{
			name:         "Unmatched path with session goes to the landing route",
			path:         "/nowhere",
			sessionValid: true,
			snap:         client,
			decision:     guard.DecisionAuthorized,
			redirect:     guard.PathClientDashboard,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			outcome := g.Evaluate(test.path, test.sessionValid, test.snap)
			require.Equal(t, test.decision, outcome.Decision, "decision %s", outcome.Decision)
			require.Equal(t, test.redirect, outcome.RedirectTo)
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	g, err := guard.New(guard.DefaultRoutes())
	require.NoError(t, err)

	snap := snapshotFor(t, entity.RoleEmployee)

	first := g.Evaluate(guard.PathEmployeeDashboard, true, snap)

	for range 5 {
		require.Equal(t, first, g.Evaluate(guard.PathEmployeeDashboard, true, snap))
	}
}

func TestRouteFor(t *testing.T) {
	t.Parallel()

	g, err := guard.New(guard.DefaultRoutes())
	require.NoError(t, err)

	route, ok := g.RouteFor(guard.PathAdminDashboard)
	require.True(t, ok)
	require.True(t, route.Protected)
	require.Equal(t, []entity.Role{entity.RoleAdmin}, route.Roles)

	_, ok = g.RouteFor("/nowhere")
	require.False(t, ok)
}

func TestLanding(t *testing.T) {
	t.Parallel()

	g, err := guard.New(guard.DefaultRoutes())
	require.NoError(t, err)

	tests := []struct {
		name string
		snap rbac.Snapshot
		want string
	}{
		{"Admin lands on the admin dashboard", snapshotFor(t, entity.RoleAdmin), guard.PathAdminDashboard},
		{"Employee lands on the employee dashboard", snapshotFor(t, entity.RoleEmployee), guard.PathEmployeeDashboard},
		{"Client lands on the client dashboard", snapshotFor(t, entity.RoleClient), guard.PathClientDashboard},
		{"Restricted lands on the generic dashboard", snapshotFor(t, entity.RoleRestricted), guard.PathDashboard},
		{"Anonymous matches the roleless dashboard entry", rbac.Anonymous(), guard.PathDashboard},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, test.want, g.Landing(test.snap))
		})
	}
}
