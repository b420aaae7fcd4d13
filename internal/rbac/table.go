// Package rbac holds the role-permission table and the permission resolver.
// The table is process-wide static configuration; resolvers are per-session
// derived views, never the source of truth.
package rbac

import (
	"fmt"
	"sync"

	"github.com/ddfinv/portal/internal/entity"
)

// rolePermissions maps every role to its default permission set.
// A role missing here is a configuration error caught by Validate at startup.
var rolePermissions = map[entity.Role][]entity.Permission{
	entity.RoleAdmin: {
		entity.PermManageUsers,
		entity.PermManageRoles,
		entity.PermManageSystem,
		entity.PermViewAllData,
		entity.PermManageClients,
		entity.PermViewClientData,
		entity.PermModifyClientService,
		entity.PermAssignClients,
		entity.PermViewOwnData,
		entity.PermUpdateProfile,
		entity.PermRequestService,
	},
	entity.RoleEmployee: {
		entity.PermViewOwnData,
		entity.PermUpdateProfile,
		entity.PermViewClientData,
		entity.PermModifyClientService,
		entity.PermAssignClients,
	},
	entity.RoleClient: {
		entity.PermViewOwnData,
		entity.PermUpdateProfile,
		entity.PermRequestService,
	},
	entity.RoleRestricted: {
		entity.PermViewOwnData,
	},
}

// PermissionSet is an immutable membership view over a set of permissions.
type PermissionSet map[entity.Permission]struct{}

func NewPermissionSet(perms ...entity.Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}

	return set
}

func (s PermissionSet) Contains(p entity.Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, len(s)+len(other))

	for p := range s {
		merged[p] = struct{}{}
	}

	for p := range other {
		merged[p] = struct{}{}
	}

	return merged
}

var (
	roleCacheMu sync.RWMutex
	roleCache   = make(map[entity.Role]PermissionSet, len(rolePermissions))
)

// PermissionsForRole returns the default permission set for a role.
// Results are memoized per role: the table is static, so the set is
// computed once and shared. Callers must not mutate the result.
func PermissionsForRole(role entity.Role) (PermissionSet, error) {
	roleCacheMu.RLock()
	set, ok := roleCache[role]
	roleCacheMu.RUnlock()

	if ok {
		return set, nil
	}

	perms, ok := rolePermissions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownRole, role)
	}

	set = NewPermissionSet(perms...)

	roleCacheMu.Lock()
	roleCache[role] = set
	roleCacheMu.Unlock()

	return set, nil
}

// Validate checks that every enumerated role has a non-empty table entry.
// Called once at startup; a failure here is fatal, not runtime-recoverable.
func Validate() error {
	for _, role := range entity.Roles {
		perms, ok := rolePermissions[role]
		if !ok {
			return fmt.Errorf("role %q has no permission table entry", role)
		}

		if len(perms) == 0 {
			return fmt.Errorf("role %q has an empty permission table entry", role)
		}
	}

	return nil
}
