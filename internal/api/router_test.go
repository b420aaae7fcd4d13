package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ddfinv/portal/internal/api"
	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
	"github.com/ddfinv/portal/internal/session"
	"github.com/ddfinv/portal/pkg/config"
)

type stubService struct{}

func (stubService) Login(context.Context, string, string, string) (string, error) {
	return guard.PathDashboard, nil
}

func (stubService) Register(context.Context, string, string, string, string) error { return nil }

func (stubService) Logout(context.Context, string) error { return nil }

func (stubService) CurrentSession(context.Context, string) (entity.Session, bool, error) {
	return entity.Session{}, false, nil
}

func (stubService) Proxy(context.Context, string, string, string, any) (json.RawMessage, error) {
	return nil, nil
}

func (stubService) RevokeSession(context.Context, string, string) error { return nil }

type stubProfile struct{}

func (stubProfile) SessionProfile(context.Context, string) (entity.UserAccount, error) {
	return entity.UserAccount{}, nil
}

const testCookieName = "portal_session"

func newTestRouter(t *testing.T) (http.Handler, *session.Store) {
	t.Helper()

	g, err := guard.New(guard.DefaultRoutes())
	require.NoError(t, err)

	store := session.NewStore(session.NewMemoryKV())
	mw := api.NewMiddleware(store, rbac.NewResolver(store, stubProfile{}), g, config.SessionConfig{
		CookieName: testCookieName,
	})

	return api.NewRouter(api.NewHandler(stubService{}), mw), store
}

func validToken(t *testing.T) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestRouter_UnmatchedPathRedirectsToLogin(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, guard.PathLogin, rec.Header().Get("Location"))
}

func TestRouter_UnmatchedPathRedirectsToLanding(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t)

	err := store.SetSession(context.Background(), "sid-1", validToken(t), entity.UserAccount{
		ID:   7,
		Role: entity.RoleClient,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "sid-1"})

	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, guard.PathClientDashboard, rec.Header().Get("Location"))
}

func TestRouter_MatchedPageStillRenders(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t)

	err := store.SetSession(context.Background(), "sid-1", validToken(t), entity.UserAccount{
		ID:   7,
		Role: entity.RoleClient,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, guard.PathDashboard, nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "sid-1"})

	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		View string `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, "dashboard", page.View)
}

func TestRouter_ForbiddenDashboardRedirectsToUnauthorized(t *testing.T) {
	t.Parallel()

	router, store := newTestRouter(t)

	err := store.SetSession(context.Background(), "sid-1", validToken(t), entity.UserAccount{
		ID:   7,
		Role: entity.RoleClient,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, guard.PathAdminDashboard, nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "sid-1"})

	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, guard.PathUnauthorized, rec.Header().Get("Location"))
}
