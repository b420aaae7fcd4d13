package guard

import (
	"fmt"

	"github.com/ddfinv/portal/internal/rbac"
)

type Decision uint8

const (
	// DecisionIndeterminate means the session status is still unknown:
	// render a loading placeholder, do not redirect.
	DecisionIndeterminate Decision = iota
	DecisionAuthorized
	DecisionUnauthenticated
	DecisionForbidden
)

func (d Decision) String() string {
	switch d {
	case DecisionIndeterminate:
		return "indeterminate"
	case DecisionAuthorized:
		return "authorized"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionForbidden:
		return "forbidden"
	}

	return "unknown"
}

// Outcome is one navigation decision. RedirectTo is set only when the
// request must move elsewhere.
type Outcome struct {
	Decision   Decision
	RedirectTo string
}

// Guard maps (route, session) pairs to outcomes. It holds no mutable
// state: every navigation is evaluated against the current snapshot, so a
// stale authorization decision is never reused.
type Guard struct {
	routes []Route
	byPath map[string]Route
}

// New validates the table once: the login and unauthorized targets must
// exist and be public, and every role reference must have a permission
// table entry. A bad table is fatal at startup.
func New(routes []Route) (*Guard, error) {
	byPath := make(map[string]Route, len(routes))

	for _, route := range routes {
		if route.Path == "" {
			return nil, fmt.Errorf("route with empty path")
		}

		if _, ok := byPath[route.Path]; ok {
			return nil, fmt.Errorf("duplicate route %q", route.Path)
		}

		for _, role := range route.Roles {
			if _, err := rbac.PermissionsForRole(role); err != nil {
				return nil, fmt.Errorf("route %q: %w", route.Path, err)
			}
		}

		byPath[route.Path] = route
	}

	for _, target := range []string{PathLogin, PathUnauthorized} {
		route, ok := byPath[target]
		if !ok {
			return nil, fmt.Errorf("route table is missing %q", target)
		}

		if route.Protected {
			return nil, fmt.Errorf("redirect target %q must be public", target)
		}
	}

	return &Guard{routes: routes, byPath: byPath}, nil
}

// Evaluate runs the per-navigation state machine:
//
//	public route                      -> Authorized, no checks
//	resolver still loading            -> Indeterminate
//	protected and no valid session    -> Unauthenticated, redirect to login
//	role list not satisfied           -> Forbidden, redirect to unauthorized
//	otherwise                         -> Authorized
//
// Unmatched paths redirect to login when unauthenticated and to the
// session's landing route otherwise. Evaluate is pure: the same inputs
// always yield the same outcome, and it never fails — indeterminate or
// erroneous states deny instead.
func (g *Guard) Evaluate(path string, sessionValid bool, snap rbac.Snapshot) Outcome {
	route, ok := g.byPath[path]
	if !ok {
		if sessionValid {
			return Outcome{Decision: DecisionAuthorized, RedirectTo: g.Landing(snap)}
		}

		return Outcome{Decision: DecisionUnauthenticated, RedirectTo: PathLogin}
	}

	if !route.Protected {
		return Outcome{Decision: DecisionAuthorized}
	}

	if snap.State() == rbac.StateLoading {
		return Outcome{Decision: DecisionIndeterminate}
	}

	if !sessionValid {
		return Outcome{Decision: DecisionUnauthenticated, RedirectTo: PathLogin}
	}

	if len(route.Roles) > 0 && !snap.HasAnyRole(route.Roles...) {
		return Outcome{Decision: DecisionForbidden, RedirectTo: PathUnauthorized}
	}

	return Outcome{Decision: DecisionAuthorized}
}

// Landing resolves the post-login route from the table instead of
// hard-coding one per role: the first protected route the session may
// enter wins.
func (g *Guard) Landing(snap rbac.Snapshot) string {
	for _, route := range g.routes {
		if !route.Protected {
			continue
		}

		if len(route.Roles) == 0 || snap.HasAnyRole(route.Roles...) {
			return route.Path
		}
	}

	return PathLogin
}

// RouteFor returns the table entry for a path, if any.
func (g *Guard) RouteFor(path string) (Route, bool) {
	route, ok := g.byPath[path]
	return route, ok
}
