package domain

import "time"

// TokenType distinguishes the two bearer credentials the service issues.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Cookie names used for token transport next to the Authorization header.
const (
	AccessCookieName  = "authToken"
	RefreshCookieName = "refreshToken"
)

// Claims is the verified claim set of a token. Role and Email are only
// populated on access tokens; refresh tokens carry the bare subject.
type Claims struct {
	Subject   string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Type      TokenType
	Role      string
	Email     string
}

// TokenPair is the result of a login or a refresh rotation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
