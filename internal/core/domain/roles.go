package domain

// Permission is a namespaced capability identifier: resource:action[:scope],
// where scope distinguishes "own" (caller's resources only) from "any".
type Permission string

const (
	PermBooksRead   Permission = "books:read"
	PermBooksCreate Permission = "books:create"
	PermBooksUpdate Permission = "books:update"
	PermBooksDelete Permission = "books:delete"

	PermBorrowsCreate    Permission = "borrows:create"
	PermBorrowsReadOwn   Permission = "borrows:read:own"
	PermBorrowsReadAny   Permission = "borrows:read:any"
	PermBorrowsReturnOwn Permission = "borrows:return:own"
	PermBorrowsUpdateAny Permission = "borrows:update:any"

	PermReviewsCreate    Permission = "reviews:create"
	PermReviewsUpdateOwn Permission = "reviews:update:own"
	PermReviewsDeleteAny Permission = "reviews:delete:any"

	PermCategoriesManage Permission = "categories:manage"

	PermContactCreate  Permission = "contact:create"
	PermContactReadAny Permission = "contact:read:any"

	PermProfileReadOwn   Permission = "profile:read:own"
	PermProfileUpdateOwn Permission = "profile:update:own"

	PermUsersReadAny     Permission = "users:read:any"
	PermUsersRolesAssign Permission = "users:roles:assign"

	PermAuditRead Permission = "audit:read"
)

// Role names. Keep these stable; they are embedded in issued tokens.
const (
	RoleBorrower  = "borrower"
	RoleLibrarian = "librarian"
	RoleAdmin     = "admin"
)

// Role is a named level with an explicit permission allow-list. A higher
// level does NOT inherit a lower level's permissions; every role spells out
// exactly what it may do.
type Role struct {
	Name        string
	Level       int
	Permissions map[Permission]struct{}
}

// RoleTable maps role name to its definition. Loaded once at startup and
// treated as read-only thereafter.
type RoleTable map[string]Role

func permSet(perms ...Permission) map[Permission]struct{} {
	s := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// DefaultRoles is the role table of the lending platform.
func DefaultRoles() RoleTable {
	return RoleTable{
		RoleBorrower: {
			Name:  RoleBorrower,
			Level: 1,
			Permissions: permSet(
				PermBooksRead,
				PermBorrowsCreate,
				PermBorrowsReadOwn,
				PermBorrowsReturnOwn,
				PermReviewsCreate,
				PermReviewsUpdateOwn,
				PermContactCreate,
				PermProfileReadOwn,
				PermProfileUpdateOwn,
			),
		},
		RoleLibrarian: {
			Name:  RoleLibrarian,
			Level: 2,
			Permissions: permSet(
				PermBooksRead,
				PermBooksCreate,
				PermBooksUpdate,
				PermBorrowsReadAny,
				PermBorrowsUpdateAny,
				PermReviewsDeleteAny,
				PermCategoriesManage,
				PermContactReadAny,
				PermUsersReadAny,
				PermProfileReadOwn,
				PermProfileUpdateOwn,
			),
		},
		RoleAdmin: {
			Name:  RoleAdmin,
			Level: 3,
			Permissions: permSet(
				PermBooksRead,
				PermBooksCreate,
				PermBooksUpdate,
				PermBooksDelete,
				PermBorrowsReadAny,
				PermBorrowsUpdateAny,
				PermReviewsDeleteAny,
				PermCategoriesManage,
				PermContactReadAny,
				PermUsersReadAny,
				PermUsersRolesAssign,
				PermAuditRead,
				PermProfileReadOwn,
				PermProfileUpdateOwn,
			),
		},
	}
}
