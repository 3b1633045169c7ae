package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/api/middleware"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// AdminHandler owns the privileged user-management endpoints.
type AdminHandler struct {
	accounts ports.AccountService
}

func NewAdminHandler(accounts ports.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AssignRole changes a member's role. The assigner's level must cover the
// new role; the check happens before anything is written.
//
// @Summary      Assign a role to a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Target user ID"
// @Param        body  body      assignRoleRequest  true  "New role"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) AssignRole(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.ErrNoToken
	}

	var req assignRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.accounts.AssignRole(c.Request().Context(), p, c.Param("id"), req.Role)
	if err != nil {
		// Missing target is a 404 here, unlike the authentication path.
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, user)
}
