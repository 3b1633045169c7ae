package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// AccountService implements registration, credential login, password change,
// and role assignment on top of the user store and the token core.
type AccountService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	rbac   ports.RBACEngine
}

func NewAccountService(users ports.UserRepository, tokens ports.TokenService, rbac ports.RBACEngine) *AccountService {
	return &AccountService{users: users, tokens: tokens, rbac: rbac}
}

// Register creates a borrower account. New members always start as
// borrowers; promotion goes through AssignRole.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleBorrower,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.users.Create(ctx, user)
}

// Login verifies credentials and issues a fresh token pair. A missing user
// and a wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.TokenPair, *domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.TokenPair{}, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.TokenPair{}, nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.TokenPair{}, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.GenerateTokenPair(ctx, user.Principal())
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	return pair, user, nil
}

// ChangePassword verifies the current password before storing the new hash,
// then blacklists the presented access token: a password change invalidates
// the session that performed it.
func (s *AccountService) ChangePassword(ctx context.Context, actor domain.Principal, current, next, rawAccessToken string) error {
	if current == "" || next == "" {
		return domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, actor.ID, string(hash)); err != nil {
		return err
	}

	if rawAccessToken != "" {
		if err := s.tokens.Blacklist(ctx, rawAccessToken); err != nil {
			return err
		}
	}
	return nil
}

// AssignRole sets the target's role. The level check runs before any
// persistence: an assigner can never grant a role above their own level.
func (s *AccountService) AssignRole(ctx context.Context, actor domain.Principal, targetID, role string) (*domain.User, error) {
	if !s.rbac.KnownRole(role) {
		return nil, domain.ErrUnknownRole
	}
	if !s.rbac.HasHigherOrEqualRole(actor, role) {
		return nil, domain.ErrInsufficientRoleLevel
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}
