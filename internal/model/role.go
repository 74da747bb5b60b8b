package model

import "time"

// RoleName is the closed set of role names minted into access tokens.
// Roles created by administrators may carry other names; those still
// compare as plain strings when the permission guard re-reads them.
type RoleName string

const (
	RoleSuperAdmin RoleName = "super_admin"
	RoleAdmin      RoleName = "admin"
	RoleCustomer   RoleName = "customer"
)

// Permission names checked by the permission guard.
const (
	PermViewCategory   = "VIEW_CATEGORY"
	PermCreateCategory = "CREATE_CATEGORY"
	PermUpdateCategory = "UPDATE_CATEGORY"
	PermDeleteCategory = "DELETE_CATEGORY"
	PermViewRole       = "VIEW_ROLE"
	PermCreateRole     = "CREATE_ROLE"
	PermUpdateRole     = "UPDATE_ROLE"
	PermDeleteRole     = "DELETE_ROLE"
)

// Role represents a row in the `roles` table. Permissions is only
// filled by queries that join role_permissions.
type Role struct {
	ID          string
	Name        string
	CreatedBy   string
	UpdatedBy   string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is static reference data grouped by module
// (e.g. "category", "role").
type Permission struct {
	ID     string
	Name   string
	Module string
}

// PermissionNames returns the set of permission names granted to the role.
func (r *Role) PermissionNames() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Permissions))
	for _, p := range r.Permissions {
		out[p.Name] = struct{}{}
	}
	return out
}
