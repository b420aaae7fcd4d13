package rbac

import (
	"context"
	"sync"

	"github.com/ddfinv/portal/internal/entity"
)

// State reports whether a snapshot's permission view is settled.
type State uint8

const (
	StateLoading State = iota
	StateReady
	StateError
)

// Snapshot is an immutable permission view computed from one session state.
// A Loading or Error snapshot grants nothing: no permission is available
// while the session is indeterminate.
type Snapshot struct {
	state         State
	authenticated bool
	role          entity.Role
	effective     PermissionSet
}

func (s Snapshot) State() State        { return s.state }
func (s Snapshot) Authenticated() bool { return s.state == StateReady && s.authenticated }

func (s Snapshot) HasPermission(p entity.Permission) bool {
	return s.effective.Contains(p)
}

func (s Snapshot) HasAnyPermission(perms ...entity.Permission) bool {
	for _, p := range perms {
		if s.effective.Contains(p) {
			return true
		}
	}

	return false
}

func (s Snapshot) HasAllPermissions(perms ...entity.Permission) bool {
	for _, p := range perms {
		if !s.effective.Contains(p) {
			return false
		}
	}

	return true
}

// HasRole is an exact match. Admin does not satisfy an Employee-only check.
func (s Snapshot) HasRole(role entity.Role) bool {
	return s.Authenticated() && s.role == role
}

func (s Snapshot) HasAnyRole(roles ...entity.Role) bool {
	for _, role := range roles {
		if s.HasRole(role) {
			return true
		}
	}

	return false
}

// CanRender evaluates the permission check first and constructs the view
// only when it passes, so the unauthorized branch does no work.
func CanRender[T any](snap Snapshot, required []entity.Permission, view func() T) (T, bool) {
	if !snap.HasAnyPermission(required...) {
		var zero T
		return zero, false
	}

	return view(), true
}

// SessionStore is the slice of the session store the resolver reads.
type SessionStore interface {
	Session(ctx context.Context, sid string) (entity.Session, error)
	IsValid(ctx context.Context, sid string) bool
	Subscribe(fn func(sid string))
}

// ProfileFetcher re-fetches the current user profile from the backend when
// the persisted session carries a token but no user record.
type ProfileFetcher interface {
	SessionProfile(ctx context.Context, token string) (entity.UserAccount, error)
}

type resolved struct {
	token string
	snap  Snapshot
}

// Resolver turns persisted sessions into permission snapshots. Snapshots are
// cached per session id and dropped on every store notification, so a session
// write is never observed out of order: invalidation runs synchronously from
// the notification that produced it.
type Resolver struct {
	store   SessionStore
	profile ProfileFetcher

	mu    sync.Mutex
	cache map[string]resolved
}

func NewResolver(store SessionStore, profile ProfileFetcher) *Resolver {
	r := &Resolver{
		store:   store,
		profile: profile,
		cache:   make(map[string]resolved),
	}

	store.Subscribe(r.invalidate)

	return r
}

func (r *Resolver) invalidate(sid string) {
	r.mu.Lock()
	delete(r.cache, sid)
	r.mu.Unlock()
}

// Anonymous is the settled unauthenticated snapshot.
func Anonymous() Snapshot {
	return Snapshot{state: StateReady, effective: NewPermissionSet()}
}

// Loading marks a session still being established. Grants nothing.
func Loading() Snapshot {
	return Snapshot{state: StateLoading, effective: NewPermissionSet()}
}

// Errored marks a session that failed to establish. Grants nothing.
func Errored() Snapshot {
	return Snapshot{state: StateError, effective: NewPermissionSet()}
}

// SnapshotFor computes the settled snapshot for a user record: role
// defaults merged with directly granted permissions.
func SnapshotFor(user entity.UserAccount) (Snapshot, error) {
	base, err := PermissionsForRole(user.Role)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		state:         StateReady,
		authenticated: true,
		role:          user.Role,
		effective:     base.Union(NewPermissionSet(user.Permissions...)),
	}, nil
}

// Resolve returns the permission snapshot for a session id. An invalid or
// absent session resolves to the anonymous snapshot; a session still being
// established resolves to Loading; a failed establishment resolves to Error.
// Resolve never fails: indeterminate states deny instead.
func (r *Resolver) Resolve(ctx context.Context, sid string) Snapshot {
	if sid == "" || !r.store.IsValid(ctx, sid) {
		return Anonymous()
	}

	sess, err := r.store.Session(ctx, sid)
	if err != nil || !sess.Present() {
		return Anonymous()
	}

	r.mu.Lock()

	if c, ok := r.cache[sid]; ok && c.token == sess.Token {
		r.mu.Unlock()
		return c.snap
	}

	if sess.User.Role == "" {
		// Mark the entry Loading so concurrent navigations observe it from
		// the cache above rather than racing the fetch themselves.
		r.cache[sid] = resolved{token: sess.Token, snap: Loading()}
		r.mu.Unlock()

		return r.establish(ctx, sid, sess)
	}

	snap, err := SnapshotFor(sess.User)
	if err != nil {
		r.mu.Unlock()
		return Errored()
	}

	r.cache[sid] = resolved{token: sess.Token, snap: snap}
	r.mu.Unlock()

	return snap
}

func (r *Resolver) establish(ctx context.Context, sid string, sess entity.Session) Snapshot {
	user, err := r.profile.SessionProfile(ctx, sess.Token)

	r.mu.Lock()
	defer r.mu.Unlock()

	// The session may have been rewritten or cleared while fetching.
	if c, ok := r.cache[sid]; !ok || c.token != sess.Token {
		return Loading()
	}

	if err != nil {
		delete(r.cache, sid) // errors are not cached, the next navigation retries
		return Errored()
	}

	snap, err := SnapshotFor(user)
	if err != nil {
		delete(r.cache, sid)
		return Errored()
	}

	r.cache[sid] = resolved{token: sess.Token, snap: snap}

	return snap
}
