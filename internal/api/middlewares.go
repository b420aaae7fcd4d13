package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
	"github.com/ddfinv/portal/pkg/config"
	"github.com/ddfinv/portal/pkg/logger"
)

type ctxKeySnapshot struct{}

func snapshotFromCtx(ctx context.Context) rbac.Snapshot {
	snap, ok := ctx.Value(ctxKeySnapshot{}).(rbac.Snapshot)
	if !ok {
		return rbac.Anonymous()
	}

	return snap
}

type SessionReader interface {
	IsValid(ctx context.Context, sid string) bool
}

type Middleware struct {
	sessions SessionReader
	resolver *rbac.Resolver
	guard    *guard.Guard
	cookie   config.SessionConfig
}

func NewMiddleware(sessions SessionReader, resolver *rbac.Resolver, g *guard.Guard, cookie config.SessionConfig) *Middleware {
	return &Middleware{
		sessions: sessions,
		resolver: resolver,
		guard:    g,
		cookie:   cookie,
	}
}

func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Origin, Accept, User-Agent, Cache-Control")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := logger.SetRequestID(r.Context(), uuid.Must(uuid.NewV4()).String())

		ctx = logger.SetMethod(ctx, r.Method)
		ctx = logger.SetURL(ctx, r.URL.Path)
		ctx = logger.SetUserAgent(ctx, r.UserAgent())
		ctx = logger.SetLogType(ctx, "webrequest")

		ip := entity.IPFromCtx(ctx)
		ctx = logger.SetIP(ctx, ip)

		slog.InfoContext(ctx, "incoming request")

		next.ServeHTTP(w, r.WithContext(ctx))

		duration := time.Since(start)
		slog.InfoContext(ctx, "request completed", "duration_ms", duration.Milliseconds())
	})
}

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			err := recover()
			if err != nil {
				slog.ErrorContext(ctx, "panic", "error", err, "stack", string(debug.Stack()))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}(r.Context())
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) WithIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := removePort(r.RemoteAddr)

		if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
			parts := splitAndTrim(xForwardedFor, ",")

			for _, part := range parts {
				part = removePort(part)
				if isValidIP(part) {
					ip = part
					break
				}
			}
		}

		if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
			xRealIP = removePort(xRealIP)
			if isValidIP(xRealIP) {
				ip = xRealIP
			}
		}

		if !isValidIP(ip) {
			slog.Warn("invalid IP detected, using fallback", "ip", ip, "remote_addr", r.RemoteAddr)
			ip = "unknown"
		}

		ctx := context.WithValue(r.Context(), entity.CtxKeyIP{}, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithSession binds the request to its browser session id, issuing the
// cookie on first contact, and resolves the permission snapshot once per
// request.
func (m *Middleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""

		cookie, err := r.Cookie(m.cookie.CookieName)
		if err == nil && cookie.Value != "" {
			sid = cookie.Value
		}

		if sid == "" {
			sid = uuid.Must(uuid.NewV4()).String()

			http.SetCookie(w, &http.Cookie{
				Name:     m.cookie.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(m.cookie.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   m.cookie.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), entity.CtxKeySessionID{}, sid)
		ctx = context.WithValue(ctx, ctxKeySnapshot{}, m.resolver.Resolve(ctx, sid))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guarded applies the route guard to a page route. The decision is made
// fresh on every navigation from the current snapshot.
func (m *Middleware) Guarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := entity.SessionIDFromCtx(ctx)
		snap := snapshotFromCtx(ctx)

		outcome := m.guard.Evaluate(r.URL.Path, m.sessions.IsValid(ctx, sid), snap)
		guardDecisions.WithLabelValues(outcome.Decision.String()).Inc()

		switch outcome.Decision {
		case guard.DecisionIndeterminate:
			sendJSON(ctx, w, http.StatusOK, map[string]string{"status": "loading"})
			return
		case guard.DecisionUnauthenticated, guard.DecisionForbidden:
			slog.InfoContext(ctx, "navigation denied",
				"decision", outcome.Decision.String(), "path", r.URL.Path)
			http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)

			return
		case guard.DecisionAuthorized:
			if outcome.RedirectTo != "" && outcome.RedirectTo != r.URL.Path {
				http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAnyPermission gates an API endpoint. Denials answer with JSON, not
// a redirect: API consumers handle status codes.
func (m *Middleware) RequireAnyPermission(perms ...entity.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			snap := snapshotFromCtx(ctx)

			if !snap.Authenticated() {
				sendErr(ctx, w, http.StatusUnauthorized, entity.ErrUnauthorized, "Please log in")
				return
			}

			if !snap.HasAnyPermission(perms...) {
				sendErr(ctx, w, http.StatusForbidden, entity.ErrForbidden, "You do not have access to this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func removePort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := []string{}

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func isValidIP(ip string) bool {
	if ip == "" {
		return false
	}

	parsedIP := net.ParseIP(ip)

	return parsedIP != nil
}
