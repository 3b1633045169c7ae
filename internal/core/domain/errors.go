package domain

// Code is a stable, machine-readable identifier for a failure class.
// Codes are part of the API contract; never rename them.
type Code string

const (
	CodeNoToken                 Code = "NO_TOKEN"
	CodeTokenMalformed          Code = "TOKEN_MALFORMED"
	CodeTokenExpired            Code = "TOKEN_EXPIRED"
	CodeTokenRevoked            Code = "TOKEN_REVOKED"
	CodeTokenWrongType          Code = "TOKEN_WRONG_TYPE"
	CodeInvalidRefreshToken     Code = "INVALID_REFRESH_TOKEN"
	CodeInvalidCredentials      Code = "INVALID_CREDENTIALS"
	CodeUserNotFound            Code = "USER_NOT_FOUND"
	CodeUserExists              Code = "USER_EXISTS"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeInsufficientRoleLevel   Code = "INSUFFICIENT_ROLE_LEVEL"
	CodeUnknownPermission       Code = "UNKNOWN_PERMISSION"
	CodeUnknownRole             Code = "UNKNOWN_ROLE"
	CodeInternal                Code = "INTERNAL"
)

// Error is a coded domain error. Sentinel instances below are compared by
// identity via errors.Is, the same way plain sentinel errors are.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNoToken             = &Error{Code: CodeNoToken, Message: "missing authentication token"}
	ErrTokenMalformed      = &Error{Code: CodeTokenMalformed, Message: "malformed or badly signed token"}
	ErrTokenExpired        = &Error{Code: CodeTokenExpired, Message: "token has expired"}
	ErrTokenRevoked        = &Error{Code: CodeTokenRevoked, Message: "token has been revoked"}
	ErrTokenWrongType      = &Error{Code: CodeTokenWrongType, Message: "token type not valid for this operation"}
	ErrInvalidRefreshToken = &Error{Code: CodeInvalidRefreshToken, Message: "invalid refresh token"}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrUserNotFound        = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrUserExists          = &Error{Code: CodeUserExists, Message: "user already exists"}

	ErrInsufficientPermissions = &Error{Code: CodeInsufficientPermissions, Message: "insufficient permissions"}
	ErrInsufficientRoleLevel   = &Error{Code: CodeInsufficientRoleLevel, Message: "role level too low for this action"}
	ErrUnknownPermission       = &Error{Code: CodeUnknownPermission, Message: "unknown permission name"}
	ErrUnknownRole             = &Error{Code: CodeUnknownRole, Message: "unknown role name"}
)
