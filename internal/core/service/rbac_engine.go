package service

import (
	"sort"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// RBACEngine evaluates permission and role-level checks against a fixed
// role table. It holds no mutable state after construction, so concurrent
// use requires no synchronization. Unknown roles and permissions always
// deny: the engine fails closed, never open.
type RBACEngine struct {
	roles domain.RoleTable
	known map[domain.Permission]struct{}
}

// NewRBACEngine copies the role table so later mutation of the caller's map
// cannot change authorization decisions.
func NewRBACEngine(roles domain.RoleTable) *RBACEngine {
	table := make(domain.RoleTable, len(roles))
	known := make(map[domain.Permission]struct{})
	for name, role := range roles {
		perms := make(map[domain.Permission]struct{}, len(role.Permissions))
		for p := range role.Permissions {
			perms[p] = struct{}{}
			known[p] = struct{}{}
		}
		role.Permissions = perms
		table[name] = role
	}
	return &RBACEngine{roles: table, known: known}
}

// HasPermission reports whether the principal's role grants perm.
func (e *RBACEngine) HasPermission(p domain.Principal, perm domain.Permission) bool {
	role, ok := e.roles[p.Role]
	if !ok {
		return false
	}
	_, ok = role.Permissions[perm]
	return ok
}

// HasAnyPermission reports whether the principal holds at least one of perms.
// An empty list denies.
func (e *RBACEngine) HasAnyPermission(p domain.Principal, perms ...domain.Permission) bool {
	for _, perm := range perms {
		if e.HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the principal holds every one of perms.
// An empty list denies.
func (e *RBACEngine) HasAllPermissions(p domain.Principal, perms ...domain.Permission) bool {
	if len(perms) == 0 {
		return false
	}
	for _, perm := range perms {
		if !e.HasPermission(p, perm) {
			return false
		}
	}
	return true
}

// HasHigherOrEqualRole compares role levels. Either role being unknown
// denies.
func (e *RBACEngine) HasHigherOrEqualRole(p domain.Principal, role string) bool {
	mine, ok := e.roles[p.Role]
	if !ok {
		return false
	}
	theirs, ok := e.roles[role]
	if !ok {
		return false
	}
	return mine.Level >= theirs.Level
}

// CanAccessResource grants access when the principal holds the "any" scoped
// permission, or holds the "own" scoped permission and owns the resource.
func (e *RBACEngine) CanAccessResource(p domain.Principal, ownerID string, own, any domain.Permission) bool {
	if e.HasPermission(p, any) {
		return true
	}
	return e.HasPermission(p, own) && ownerID != "" && ownerID == p.ID
}

// UserPermissions returns the principal's permission set, sorted for stable
// output. The slice is a copy; callers cannot reach the engine's table.
func (e *RBACEngine) UserPermissions(p domain.Principal) []domain.Permission {
	role, ok := e.roles[p.Role]
	if !ok {
		return nil
	}
	perms := make([]domain.Permission, 0, len(role.Permissions))
	for perm := range role.Permissions {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// KnownRole reports whether the role exists in the table.
func (e *RBACEngine) KnownRole(role string) bool {
	_, ok := e.roles[role]
	return ok
}

// KnownPermission reports whether any role grants perm. Used to distinguish
// a misconfigured route (unknown permission name) from a plain denial.
func (e *RBACEngine) KnownPermission(perm domain.Permission) bool {
	_, ok := e.known[perm]
	return ok
}
