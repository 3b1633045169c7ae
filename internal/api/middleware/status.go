package middleware

import (
	"net/http"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// StatusForCode maps a stable domain error code to the HTTP status it is
// rendered with. Authentication failures are 401, authorization failures
// 403, misconfigured checks 400; everything unrecognized is a 500.
func StatusForCode(code domain.Code) int {
	switch code {
	case domain.CodeNoToken,
		domain.CodeTokenMalformed,
		domain.CodeTokenExpired,
		domain.CodeTokenRevoked,
		domain.CodeTokenWrongType,
		domain.CodeInvalidRefreshToken,
		domain.CodeInvalidCredentials,
		// Authentication context: a token whose subject no longer exists is
		// an invalid credential. Handlers that look up other users map a
		// missing target to 404 themselves.
		domain.CodeUserNotFound:
		return http.StatusUnauthorized
	case domain.CodeInsufficientPermissions,
		domain.CodeInsufficientRoleLevel:
		return http.StatusForbidden
	case domain.CodeUnknownPermission,
		domain.CodeUnknownRole:
		return http.StatusBadRequest
	case domain.CodeUserExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
