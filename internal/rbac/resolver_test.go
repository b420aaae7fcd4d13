package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/rbac"
)

type fakeStore struct {
	sessions map[string]entity.Session
	valid    map[string]bool
	subs     []func(sid string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]entity.Session),
		valid:    make(map[string]bool),
	}
}

func (f *fakeStore) Session(_ context.Context, sid string) (entity.Session, error) {
	return f.sessions[sid], nil
}

func (f *fakeStore) IsValid(_ context.Context, sid string) bool {
	return f.valid[sid]
}

func (f *fakeStore) Subscribe(fn func(sid string)) {
	f.subs = append(f.subs, fn)
}

func (f *fakeStore) notify(sid string) {
	for _, fn := range f.subs {
		fn(sid)
	}
}

func (f *fakeStore) put(sid string, sess entity.Session) {
	f.sessions[sid] = sess
	f.valid[sid] = true
	f.notify(sid)
}

func (f *fakeStore) clear(sid string) {
	delete(f.sessions, sid)
	delete(f.valid, sid)
	f.notify(sid)
}

type fakeProfile struct {
	user  entity.UserAccount
	err   error
	calls int
}

func (f *fakeProfile) SessionProfile(context.Context, string) (entity.UserAccount, error) {
	f.calls++
	return f.user, f.err
}

func TestResolve_AnonymousWhenNoSession(t *testing.T) {
	t.Parallel()

	r := rbac.NewResolver(newFakeStore(), &fakeProfile{})

	snap := r.Resolve(context.Background(), "sid-1")

	require.Equal(t, rbac.StateReady, snap.State())
	require.False(t, snap.Authenticated())
	require.False(t, snap.HasPermission(entity.PermViewOwnData))
}

func TestResolve_EffectiveSupersetOfRoleDefaults(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := rbac.NewResolver(store, &fakeProfile{})

	store.put("sid-1", entity.Session{
		Token: "token-a",
		User: entity.UserAccount{
			ID:          7,
			Role:        entity.RoleClient,
			Permissions: []entity.Permission{entity.PermViewClientData},
		},
	})

	snap := r.Resolve(context.Background(), "sid-1")

	require.True(t, snap.Authenticated())

	defaults, err := rbac.PermissionsForRole(entity.RoleClient)
	require.NoError(t, err)

	for _, p := range entity.Permissions {
		if defaults.Contains(p) {
			require.True(t, snap.HasPermission(p), "role default %s must survive the merge", p)
		}
	}

	// Direct grants extend, never replace, the role defaults.
	require.True(t, snap.HasPermission(entity.PermViewClientData))
	require.False(t, snap.HasPermission(entity.PermManageUsers))
}

func TestResolve_CachesByToken(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	profile := &fakeProfile{user: entity.UserAccount{Role: entity.RoleClient}}
	r := rbac.NewResolver(store, profile)

	store.put("sid-1", entity.Session{Token: "token-a"})

	first := r.Resolve(context.Background(), "sid-1")
	require.True(t, first.Authenticated())
	require.Equal(t, 1, profile.calls)

	second := r.Resolve(context.Background(), "sid-1")
	require.True(t, second.Authenticated())
	require.Equal(t, 1, profile.calls, "settled snapshot must be served from cache")
}

func TestResolve_InvalidatedOnStoreWrite(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := rbac.NewResolver(store, &fakeProfile{})

	store.put("sid-1", entity.Session{
		Token: "token-a",
		User:  entity.UserAccount{Role: entity.RoleClient},
	})

	require.True(t, r.Resolve(context.Background(), "sid-1").HasPermission(entity.PermRequestService))

	store.put("sid-1", entity.Session{
		Token: "token-b",
		User:  entity.UserAccount{Role: entity.RoleAdmin},
	})

	snap := r.Resolve(context.Background(), "sid-1")
	require.True(t, snap.HasPermission(entity.PermManageUsers), "stale snapshot observed after session write")
}

func TestResolve_ClearedSessionDeniesImmediately(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := rbac.NewResolver(store, &fakeProfile{})

	store.put("sid-1", entity.Session{
		Token: "token-a",
		User:  entity.UserAccount{Role: entity.RoleAdmin},
	})

	require.True(t, r.Resolve(context.Background(), "sid-1").Authenticated())

	store.clear("sid-1")

	snap := r.Resolve(context.Background(), "sid-1")
	require.False(t, snap.Authenticated())
	require.False(t, snap.HasAnyPermission(entity.Permissions...))
}

type blockingProfile struct {
	started chan struct{}
	release chan struct{}
	user    entity.UserAccount
}

func (b *blockingProfile) SessionProfile(context.Context, string) (entity.UserAccount, error) {
	close(b.started)
	<-b.release

	return b.user, nil
}

func TestResolve_ConcurrentNavigationObservesLoading(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	profile := &blockingProfile{
		started: make(chan struct{}),
		release: make(chan struct{}),
		user:    entity.UserAccount{Role: entity.RoleClient},
	}
	r := rbac.NewResolver(store, profile)

	store.put("sid-1", entity.Session{Token: "token-a"})

	done := make(chan rbac.Snapshot)

	go func() {
		done <- r.Resolve(context.Background(), "sid-1")
	}()

	// While the first navigation holds the profile fetch open, a second
	// one gets Loading from the cache instead of a duplicate fetch.
	<-profile.started

	snap := r.Resolve(context.Background(), "sid-1")
	require.Equal(t, rbac.StateLoading, snap.State())
	require.False(t, snap.HasAnyPermission(entity.Permissions...))

	close(profile.release)

	final := <-done
	require.True(t, final.Authenticated())
	require.True(t, final.HasPermission(entity.PermRequestService))
}

func TestResolve_ProfileErrorGrantsNothingAndRetries(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	profile := &fakeProfile{err: errors.New("backend down")}
	r := rbac.NewResolver(store, profile)

	store.put("sid-1", entity.Session{Token: "token-a"})

	snap := r.Resolve(context.Background(), "sid-1")
	require.Equal(t, rbac.StateError, snap.State())
	require.False(t, snap.Authenticated())
	require.False(t, snap.HasAnyPermission(entity.Permissions...))

	// Errors are not cached: the next navigation tries again.
	profile.err = nil
	profile.user = entity.UserAccount{Role: entity.RoleEmployee}

	snap = r.Resolve(context.Background(), "sid-1")
	require.True(t, snap.Authenticated())
	require.True(t, snap.HasPermission(entity.PermViewClientData))
}

func TestHasRole_ExactMatchOnly(t *testing.T) {
	t.Parallel()

	snap, err := rbac.SnapshotFor(entity.UserAccount{Role: entity.RoleAdmin})
	require.NoError(t, err)

	require.True(t, snap.HasRole(entity.RoleAdmin))
	require.False(t, snap.HasRole(entity.RoleEmployee), "roles do not imply one another")
	require.True(t, snap.HasAnyRole(entity.RoleEmployee, entity.RoleAdmin))
}

func TestHasAllPermissions(t *testing.T) {
	t.Parallel()

	snap, err := rbac.SnapshotFor(entity.UserAccount{Role: entity.RoleEmployee})
	require.NoError(t, err)

	require.True(t, snap.HasAllPermissions(entity.PermViewClientData, entity.PermAssignClients))
	require.False(t, snap.HasAllPermissions(entity.PermViewClientData, entity.PermManageUsers))
}

func TestLoadingAndErrorSnapshotsGrantNothing(t *testing.T) {
	t.Parallel()

	for _, snap := range []rbac.Snapshot{rbac.Loading(), rbac.Errored()} {
		require.False(t, snap.Authenticated())
		require.False(t, snap.HasAnyPermission(entity.Permissions...))
		require.False(t, snap.HasRole(entity.RoleAdmin))
	}
}

func TestCanRender(t *testing.T) {
	t.Parallel()

	snap, err := rbac.SnapshotFor(entity.UserAccount{Role: entity.RoleClient})
	require.NoError(t, err)

	built := false
	view, ok := rbac.CanRender(snap, []entity.Permission{entity.PermRequestService}, func() string {
		built = true
		return "upgrade-banner"
	})

	require.True(t, ok)
	require.True(t, built)
	require.Equal(t, "upgrade-banner", view)

	built = false
	view, ok = rbac.CanRender(snap, []entity.Permission{entity.PermManageUsers}, func() string {
		built = true
		return "admin-panel"
	})

	require.False(t, ok)
	require.False(t, built, "denied views must not be constructed")
	require.Empty(t, view)
}
