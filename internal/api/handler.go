package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
	"github.com/ddfinv/portal/pkg/logger"
)

type Service interface {
	Login(ctx context.Context, sid, email, password string) (string, error)
	Register(ctx context.Context, firstName, lastName, email, password string) error
	Logout(ctx context.Context, sid string) error
	CurrentSession(ctx context.Context, sid string) (entity.Session, bool, error)
	Proxy(ctx context.Context, sid, method, path string, payload any) (json.RawMessage, error)
	RevokeSession(ctx context.Context, credential, sid string) error
}

type Handler struct {
	s Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s: s}
}

// @Summary Service health check
// @Tags portal
// @Produce json
// @Success 200 {string} string "ok"
// @Router /api/health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok\n"))
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Redirect string `json:"redirect"`
}

// @Summary Log in
// @Description Authenticates against the backend, persists the session and returns the landing route for the session's role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse "Authenticated"
// @Failure 400 {object} ResponseError "Malformed request"
// @Failure 401 {object} ResponseError "Invalid credentials"
// @Failure 502 {object} ResponseError "Backend unavailable"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx = logger.SetLogType(ctx, "auth")

	var req LoginRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "Malformed request")
		return
	}

	sid := entity.SessionIDFromCtx(ctx)

	redirect, err := h.s.Login(ctx, sid, req.Email, req.Password)
	if err != nil {
		code := http.StatusUnauthorized
		if errors.Is(err, entity.ErrBackendUnavailable) {
			code = http.StatusBadGateway
		}

		sendErr(ctx, w, code, err, loginErrText(err))

		return
	}

	sendJSON(ctx, w, http.StatusOK, LoginResponse{Redirect: redirect})
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// @Summary Register a new account
// @Description Validates the form and forwards it to the backend. Does not create a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration form"
// @Success 201 {object} RegisterResponse "Registered"
// @Failure 400 {object} ResponseError "Malformed request"
// @Failure 422 {object} ResponseError "Validation failed"
// @Router /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx = logger.SetLogType(ctx, "auth")

	var req RegisterRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "Malformed request")
		return
	}

	err = h.s.Register(ctx, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if _, ok := validationErrText(err); !ok {
			code = http.StatusBadGateway
		}

		sendErr(ctx, w, code, err, registerErrText(err))

		return
	}

	sendJSON(ctx, w, http.StatusCreated, RegisterResponse{
		Message:  "Registration successful! Please log in with your new account.",
		Redirect: guard.PathLogin,
	})
}

type LogoutResponse struct {
	Redirect string `json:"redirect"`
}

// @Summary Log out
// @Description Clears the session. Safe to call without one.
// @Tags auth
// @Produce json
// @Success 200 {object} LogoutResponse "Logged out"
// @Router /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx = logger.SetLogType(ctx, "auth")

	err := h.s.Logout(ctx, entity.SessionIDFromCtx(ctx))
	if err != nil {
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
		return
	}

	sendJSON(ctx, w, http.StatusOK, LogoutResponse{Redirect: guard.PathLogin})
}

type SessionInfoResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *entity.UserAccount `json:"user,omitempty"`
	Permissions   []entity.Permission `json:"permissions,omitempty"`
}

// @Summary Current session
// @Description Returns the authenticated user and the effective permission set.
// @Tags auth
// @Produce json
// @Success 200 {object} SessionInfoResponse
// @Router /api/session [get]
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, valid, err := h.s.CurrentSession(ctx, entity.SessionIDFromCtx(ctx))
	if err != nil {
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
		return
	}

	if !valid || !sess.Present() {
		sendJSON(ctx, w, http.StatusOK, SessionInfoResponse{Authenticated: false})
		return
	}

	snap := snapshotFromCtx(ctx)

	perms := make([]entity.Permission, 0, len(entity.Permissions))

	for _, p := range entity.Permissions {
		if snap.HasPermission(p) {
			perms = append(perms, p)
		}
	}

	sendJSON(ctx, w, http.StatusOK, SessionInfoResponse{
		Authenticated: true,
		User:          &sess.User,
		Permissions:   perms,
	})
}

// Page is the view model page routes answer with. The portal shell decides
// how to draw it; layout is not this service's concern.
type Page struct {
	View  string            `json:"view"`
	Data  json.RawMessage   `json:"data,omitempty"`
	Links map[string]string `json:"links,omitempty"`
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, Page{View: "login"})
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, Page{View: "register"})
}

func (h *Handler) UnauthorizedPage(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, Page{View: "unauthorized"})
}

// NotFoundPage backs the catch-all route. The guard redirects every
// unmatched navigation before it gets here; this only answers direct hits
// on a path the guard chose not to move, which does not happen today.
func (h *Handler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// Dashboard is the generic landing view: navigation assembled from the
// effective permission set. Sections the session may not see are never
// built.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := snapshotFromCtx(ctx)

	links := make(map[string]string)

	if link, ok := rbac.CanRender(snap, []entity.Permission{entity.PermManageUsers, entity.PermManageSystem},
		func() string { return guard.PathAdminDashboard }); ok {
		links["admin"] = link
	}

	if link, ok := rbac.CanRender(snap, []entity.Permission{entity.PermViewClientData},
		func() string { return guard.PathEmployeeDashboard }); ok {
		links["employees"] = link
	}

	if link, ok := rbac.CanRender(snap, []entity.Permission{entity.PermRequestService},
		func() string { return guard.PathClientDashboard }); ok {
		links["client"] = link
	}

	sendJSON(ctx, w, http.StatusOK, Page{View: "dashboard", Links: links})
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "admin", "/users")
}

func (h *Handler) EmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "employee", "/client")
}

func (h *Handler) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "client", "/client/by-user/me")
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request, view, dataPath string) {
	ctx := r.Context()

	data, err := h.s.Proxy(ctx, entity.SessionIDFromCtx(ctx), http.MethodGet, dataPath, nil)
	if err != nil {
		if errors.Is(err, entity.ErrUnauthorized) || errors.Is(err, entity.ErrNoSession) {
			// The session was cleared underneath the navigation.
			http.Redirect(w, r, guard.PathLogin, http.StatusSeeOther)
			return
		}

		// The page still renders, without its data block.
		sendJSON(ctx, w, http.StatusOK, Page{View: view})

		return
	}

	sendJSON(ctx, w, http.StatusOK, Page{View: view, Data: data})
}

// proxy is the shared shape of the role-scoped CRUD endpoints: decode an
// optional JSON payload, forward, answer with the backend's JSON.
func (h *Handler) proxy(w http.ResponseWriter, r *http.Request, method, path string) {
	ctx := r.Context()

	var payload any

	if r.Body != nil && r.ContentLength != 0 {
		var raw json.RawMessage

		err := json.NewDecoder(r.Body).Decode(&raw)
		if err != nil {
			sendErr(ctx, w, http.StatusBadRequest, err, "Malformed request")
			return
		}

		payload = raw
	}

	data, err := h.s.Proxy(ctx, entity.SessionIDFromCtx(ctx), method, path, payload)
	if err != nil {
		sendErr(ctx, w, proxyStatus(err), err, backendMessage(err, errInternalText))
		return
	}

	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// Admin endpoints.

func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/users")
}

func (h *Handler) AdminUsersByRole(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/users/by-role/"+r.PathValue("role"))
}

func (h *Handler) AdminPendingRequests(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/admin/pending-requests")
}

func (h *Handler) AdminChangeRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	role := r.URL.Query().Get("updatedRole")

	if _, err := entity.ParseRole(role); err != nil {
		sendErr(r.Context(), w, http.StatusUnprocessableEntity, err, "Unknown role")
		return
	}

	h.proxy(w, r, http.MethodPut, fmt.Sprintf("/users/%s/role?updatedRole=%s", id, role))
}

func (h *Handler) AdminApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPut, "/admin/upgrade-requests/"+r.PathValue("id")+"/approve")
}

func (h *Handler) AdminRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPut, "/admin/upgrade-requests/"+r.PathValue("id")+"/reject")
}

// Employee endpoints.

func (h *Handler) EmployeeClients(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/client")
}

func (h *Handler) EmployeeAssignClient(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPost, "/client/assign")
}

// Client endpoints.

func (h *Handler) ClientDetails(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/client/"+r.PathValue("id"))
}

func (h *Handler) ClientInvestments(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/investments/client/"+r.PathValue("clientId"))
}

// Profile endpoints.

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/users/"+r.PathValue("id"))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPut, "/users/"+r.PathValue("id"))
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPost, "/users/"+r.PathValue("id")+"/update-password")
}

func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPost, "/guests/request-client-upgrade")
}

type RevokeSessionRequest struct {
	SessionID string `json:"session_id"`
}

// @Summary Revoke a session
// @Description Operator endpoint: drops a session everywhere. Requires the internal credential.
// @Tags internal
// @Accept json
// @Produce json
// @Param request body RevokeSessionRequest true "Session to revoke"
// @Success 200 {string} string "Revoked"
// @Failure 403 {object} ResponseError "Bad credential"
// @Router /internal/sessions/revoke [post]
func (h *Handler) RevokeSessionInternal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx = logger.SetLogType(ctx, "internal")

	var req RevokeSessionRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.SessionID == "" {
		sendErr(ctx, w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err), "Malformed request")
		return
	}

	err = h.s.RevokeSession(ctx, r.Header.Get("X-Internal-Credential"), req.SessionID)
	if err != nil {
		if errors.Is(err, entity.ErrForbidden) {
			sendErr(ctx, w, http.StatusForbidden, err, "Forbidden")
			return
		}

		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)

		return
	}

	sendJSON(ctx, w, http.StatusOK, map[string]string{"status": "revoked"})
}
