package entity

import "fmt"

// Role classifies a user account. Exactly one role per session, changed
// only by re-authentication. There is no role hierarchy.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleEmployee   Role = "Employee"
	RoleClient     Role = "Client"
	RoleRestricted Role = "Restricted"
)

// Roles lists every valid role. Order matters for landing-route resolution:
// more privileged dashboards come first.
var Roles = []Role{RoleAdmin, RoleEmployee, RoleClient, RoleRestricted}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEmployee, RoleClient, RoleRestricted:
		return Role(s), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Permission is a fine-grained capability flag. Permissions are additive:
// effective permissions are the role defaults plus anything granted directly.
type Permission string

const (
	PermManageUsers         Permission = "ManageUsers"
	PermManageRoles         Permission = "ManageRoles"
	PermManageSystem        Permission = "ManageSystem"
	PermViewAllData         Permission = "ViewAllData"
	PermManageClients       Permission = "ManageClients"
	PermViewClientData      Permission = "ViewClientData"
	PermModifyClientService Permission = "ModifyClientService"
	PermAssignClients       Permission = "AssignClients"
	PermViewOwnData         Permission = "ViewOwnData"
	PermUpdateProfile       Permission = "UpdateProfile"
	PermRequestService      Permission = "RequestService"
)

var Permissions = []Permission{
	PermManageUsers,
	PermManageRoles,
	PermManageSystem,
	PermViewAllData,
	PermManageClients,
	PermViewClientData,
	PermModifyClientService,
	PermAssignClients,
	PermViewOwnData,
	PermUpdateProfile,
	PermRequestService,
}

func ParsePermission(s string) (Permission, error) {
	for _, p := range Permissions {
		if Permission(s) == p {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

// ParsePermissions drops unknown values instead of failing: the backend
// catalog may grow ahead of the gateway, and an unknown grant can never
// satisfy a check here anyway.
func ParsePermissions(ss []string) []Permission {
	perms := make([]Permission, 0, len(ss))

	for _, s := range ss {
		p, err := ParsePermission(s)
		if err != nil {
			continue
		}

		perms = append(perms, p)
	}

	return perms
}
