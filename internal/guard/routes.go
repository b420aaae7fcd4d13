// Package guard decides, per navigation, whether a request renders,
// redirects to login, or redirects to the unauthorized page.
package guard

import "github.com/ddfinv/portal/internal/entity"

const (
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathUnauthorized = "/unauthorized"

	PathDashboard         = "/dashboard"
	PathAdminDashboard    = "/dashboard/admin"
	PathEmployeeDashboard = "/dashboard/employee"
	PathClientDashboard   = "/dashboard/client"
)

// Route is one static table entry. Defined once at startup, never mutated.
// An empty Roles list on a protected route means any authenticated session
// may enter.
type Route struct {
	Path      string
	Protected bool
	Roles     []entity.Role
}

// DefaultRoutes is the portal's route table. Role-scoped dashboards come
// before the generic one so landing-route resolution picks the most
// specific view a session may enter.
func DefaultRoutes() []Route {
	return []Route{
		{Path: PathLogin, Protected: false},
		{Path: PathRegister, Protected: false},
		{Path: PathUnauthorized, Protected: false},
		{Path: PathAdminDashboard, Protected: true, Roles: []entity.Role{entity.RoleAdmin}},
		{Path: PathEmployeeDashboard, Protected: true, Roles: []entity.Role{entity.RoleEmployee}},
		{Path: PathClientDashboard, Protected: true, Roles: []entity.Role{entity.RoleClient}},
		{Path: PathDashboard, Protected: true},
	}
}
