package domain

import "time"

// Principal is the authenticated actor attached to a request: the minimal
// view of a user that authorization decisions need. The full account record
// stays in the user store; the core only ever references it by ID.
type Principal struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// User is a library member account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the request-time view of the user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, Email: u.Email}
}
