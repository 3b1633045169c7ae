package ports

import (
	"context"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// AccountService implements the account lifecycle that feeds the token core:
// registration, credential login, password change, and role assignment.
type AccountService interface {
	// Register creates a borrower account with a hashed password.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)

	// Login verifies credentials and issues a token pair.
	Login(ctx context.Context, email, password string) (domain.TokenPair, *domain.User, error)

	// ChangePassword verifies the current password, stores the new hash, and
	// revokes the presented access token so the old session dies with it.
	ChangePassword(ctx context.Context, actor domain.Principal, current, next, rawAccessToken string) error

	// AssignRole sets the target user's role. The assigner's role level must
	// be at least the new role's level; the check happens before any
	// persistence. Fails with domain.ErrUnknownRole or
	// domain.ErrInsufficientRoleLevel.
	AssignRole(ctx context.Context, actor domain.Principal, targetID, role string) (*domain.User, error)
}
