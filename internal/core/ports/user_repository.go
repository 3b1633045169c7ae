package ports

import (
	"context"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// PrincipalStore is the narrow read interface the token layer needs: resolve
// a token subject into a live principal. A subject that no longer exists
// fails with domain.ErrUserNotFound.
type PrincipalStore interface {
	FindPrincipal(ctx context.Context, id string) (*domain.Principal, error)
}

// UserRepository is the persistence contract for member accounts.
type UserRepository interface {
	PrincipalStore

	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
