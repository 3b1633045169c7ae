package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/service"
)

func authorizedContext(p *domain.Principal, path string, paramName, paramValue string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(principalKey, *p)
	}
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	return c
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequirePermission(t *testing.T) {
	rbac := service.NewRBACEngine(domain.DefaultRoles())
	borrower := domain.Principal{ID: "u1", Role: domain.RoleBorrower}
	librarian := domain.Principal{ID: "u2", Role: domain.RoleLibrarian}

	tests := []struct {
		name      string
		principal *domain.Principal
		perms     []domain.Permission
		wantErr   error
	}{
		{"allowed", &librarian, []domain.Permission{domain.PermBooksCreate}, nil},
		{"denied", &borrower, []domain.Permission{domain.PermBooksCreate}, domain.ErrInsufficientPermissions},
		{"any of several", &borrower, []domain.Permission{domain.PermBooksCreate, domain.PermBooksRead}, nil},
		{"unauthenticated", nil, []domain.Permission{domain.PermBooksRead}, domain.ErrNoToken},
		{"unknown permission", &librarian, []domain.Permission{"books:levitate"}, domain.ErrUnknownPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := authorizedContext(tt.principal, "/books", "", "")
			err := RequirePermission(rbac, tt.perms...)(okHandler)(c)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAllPermissions(t *testing.T) {
	rbac := service.NewRBACEngine(domain.DefaultRoles())
	librarian := domain.Principal{ID: "u2", Role: domain.RoleLibrarian}

	c := authorizedContext(&librarian, "/books", "", "")
	err := RequireAllPermissions(rbac, domain.PermBooksRead, domain.PermBooksCreate)(okHandler)(c)
	if err != nil {
		t.Errorf("librarian with both permissions denied: %v", err)
	}

	c = authorizedContext(&librarian, "/books", "", "")
	err = RequireAllPermissions(rbac, domain.PermBooksRead, domain.PermBooksDelete)(okHandler)(c)
	if !errors.Is(err, domain.ErrInsufficientPermissions) {
		t.Errorf("missing one of all: got %v", err)
	}
}

func TestRequireMinimumRole(t *testing.T) {
	rbac := service.NewRBACEngine(domain.DefaultRoles())
	borrower := domain.Principal{ID: "u1", Role: domain.RoleBorrower}
	admin := domain.Principal{ID: "u3", Role: domain.RoleAdmin}

	c := authorizedContext(&admin, "/admin", "", "")
	if err := RequireMinimumRole(rbac, domain.RoleLibrarian)(okHandler)(c); err != nil {
		t.Errorf("admin below librarian floor: %v", err)
	}

	c = authorizedContext(&borrower, "/admin", "", "")
	err := RequireMinimumRole(rbac, domain.RoleLibrarian)(okHandler)(c)
	if !errors.Is(err, domain.ErrInsufficientRoleLevel) {
		t.Errorf("borrower passed librarian floor: %v", err)
	}
}

func TestRequireResourceOwnership(t *testing.T) {
	rbac := service.NewRBACEngine(domain.DefaultRoles())
	borrower := domain.Principal{ID: "u1", Role: domain.RoleBorrower}
	librarian := domain.Principal{ID: "u2", Role: domain.RoleLibrarian}

	mw := RequireResourceOwnership(rbac, "id", domain.PermBorrowsReadOwn, domain.PermBorrowsReadAny)

	// Borrower reaching their own record.
	c := authorizedContext(&borrower, "/users/u1/borrows", "id", "u1")
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("owner denied: %v", err)
	}

	// Borrower reaching someone else's record.
	c = authorizedContext(&borrower, "/users/u2/borrows", "id", "u2")
	if err := mw(okHandler)(c); !errors.Is(err, domain.ErrInsufficientPermissions) {
		t.Errorf("non-owner allowed: %v", err)
	}

	// Librarian holds the any-scoped permission.
	c = authorizedContext(&librarian, "/users/u1/borrows", "id", "u1")
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("any-scope denied: %v", err)
	}
}
