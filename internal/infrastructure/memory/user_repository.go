package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// UserRepository is an in-process user store for tests and local bootstrap.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	nextID int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}

	created := *user
	if created.ID == "" {
		r.nextID++
		created.ID = "u" + strconv.Itoa(r.nextID)
	}
	r.users[created.ID] = created
	return &created, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := u.Principal()
	return &p, nil
}

func (r *UserRepository) UpdateRole(_ context.Context, id, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

// Delete removes a user. Exists so tests can simulate a token whose subject
// vanished.
func (r *UserRepository) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}
