package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ddfinv/portal/docs" // swagger docs registration
	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
)

func NewRouter(h *Handler, mw *Middleware) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("/api/health", h.Health)

	router.HandleFunc("POST /api/auth/login", h.Login)
	router.HandleFunc("POST /api/auth/register", h.Register)
	router.HandleFunc("POST /api/auth/logout", h.Logout)
	router.HandleFunc("GET /api/session", h.SessionInfo)

	// Page routes go through the route guard; everything below it only
	// renders for an authorized navigation.
	page := func(path string, handler http.HandlerFunc) {
		router.Handle("GET "+path, mw.Guarded(handler))
	}

	page(guard.PathLogin, h.LoginPage)
	page(guard.PathRegister, h.RegisterPage)
	page(guard.PathUnauthorized, h.UnauthorizedPage)
	page(guard.PathDashboard, h.Dashboard)
	page(guard.PathAdminDashboard, h.AdminDashboard)
	page(guard.PathEmployeeDashboard, h.EmployeeDashboard)
	page(guard.PathClientDashboard, h.ClientDashboard)

	// Catch-all: paths outside the route table still go through the guard,
	// which redirects them to login or to the session's landing route.
	page("/", h.NotFoundPage)

	// Role-scoped API. Each endpoint names the permissions that may call
	// it; the permission check is the only gate, roles never appear here.
	api := func(pattern string, handler http.HandlerFunc, perms ...entity.Permission) {
		router.Handle(pattern, mw.RequireAnyPermission(perms...)(handler))
	}

	api("GET /api/admin/users", h.AdminUsers, entity.PermManageUsers, entity.PermViewAllData)
	api("GET /api/admin/users/by-role/{role}", h.AdminUsersByRole, entity.PermManageUsers, entity.PermViewAllData)
	api("GET /api/admin/pending-requests", h.AdminPendingRequests, entity.PermManageUsers)
	api("PUT /api/admin/users/{id}/role", h.AdminChangeRole, entity.PermManageRoles)
	api("PUT /api/admin/upgrade-requests/{id}/approve", h.AdminApproveRequest, entity.PermManageUsers)
	api("PUT /api/admin/upgrade-requests/{id}/reject", h.AdminRejectRequest, entity.PermManageUsers)

	api("GET /api/employee/clients", h.EmployeeClients, entity.PermViewClientData)
	api("POST /api/employee/clients/assign", h.EmployeeAssignClient, entity.PermAssignClients)

	api("GET /api/clients/{id}", h.ClientDetails, entity.PermViewClientData, entity.PermViewOwnData)
	api("GET /api/clients/{clientId}/investments", h.ClientInvestments, entity.PermViewClientData, entity.PermViewOwnData)

	api("GET /api/profile/{id}", h.Profile, entity.PermViewOwnData)
	api("PUT /api/profile/{id}", h.UpdateProfile, entity.PermUpdateProfile)
	api("POST /api/profile/{id}/password", h.UpdatePassword, entity.PermUpdateProfile)
	api("POST /api/guest/upgrade-request", h.RequestUpgrade, entity.PermRequestService)

	router.HandleFunc("POST /internal/sessions/revoke", h.RevokeSessionInternal)

	router.Handle("GET /metrics", promhttp.Handler())
	router.HandleFunc("/api/swagger/", httpSwagger.WrapHandler)

	handler := use(router, mw.Recover, mw.Cors, mw.WithIP, mw.WithSession, mw.Metrics, mw.Log)

	return handler
}

func use(handler http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	return handler
}
