package ports

import "github.com/biblioteca/lending-platform/internal/core/domain"

// RBACEngine decides whether a principal may act, given a fixed
// role→permission table loaded at startup. All checks are pure, synchronous,
// and fail-closed: an unknown role or permission always denies.
type RBACEngine interface {
	HasPermission(p domain.Principal, perm domain.Permission) bool
	HasAnyPermission(p domain.Principal, perms ...domain.Permission) bool
	HasAllPermissions(p domain.Principal, perms ...domain.Permission) bool

	// HasHigherOrEqualRole reports whether the principal's role level is at
	// least the named role's level.
	HasHigherOrEqualRole(p domain.Principal, role string) bool

	// CanAccessResource allows the action when the principal holds the "any"
	// scoped permission, or holds the "own" scoped permission and owns the
	// resource.
	CanAccessResource(p domain.Principal, ownerID string, own, any domain.Permission) bool

	// UserPermissions returns a copy of the principal's permission set, for
	// UI capability hints and diagnostics.
	UserPermissions(p domain.Principal) []domain.Permission

	// KnownRole reports whether the role exists in the table.
	KnownRole(role string) bool

	// KnownPermission reports whether the permission appears in any role.
	KnownPermission(perm domain.Permission) bool
}
