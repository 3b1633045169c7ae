package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/biblioteca/lending-platform/internal/api/handler"
	"github.com/biblioteca/lending-platform/internal/api/middleware"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// Deps carries everything the router wires together. main constructs the
// services; the router only arranges them.
type Deps struct {
	Log      zerolog.Logger
	Tokens   ports.TokenService
	Users    ports.UserRepository
	Accounts ports.AccountService
	RBAC     ports.RBACEngine
	Audit    ports.AuditService
	Recorder ports.AuditRecorder
	Mongo    *mongo.Database
	Redis    *redis.Client
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("library"))

	authenticate := middleware.Authenticate(d.Tokens, d.Users)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Accounts, d.Tokens, d.RBAC)
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register,
		middleware.Audit(d.Recorder, domain.ActionRegister, "user", domain.SeverityInfo))
	auth.POST("/login", authHandler.Login,
		middleware.Audit(d.Recorder, domain.ActionLogin, "session", domain.SeverityInfo))
	auth.POST("/refresh", authHandler.Refresh,
		middleware.Audit(d.Recorder, domain.ActionRefresh, "session", domain.SeverityInfo))
	auth.POST("/logout", authHandler.Logout, authenticate,
		middleware.Audit(d.Recorder, domain.ActionLogout, "session", domain.SeverityInfo))
	auth.POST("/password", authHandler.ChangePassword, authenticate,
		middleware.Audit(d.Recorder, domain.ActionPasswordChange, "user", domain.SeverityWarning))
	auth.GET("/me", authHandler.Me, authenticate)

	// --- Admin routes ---
	adminHandler := handler.NewAdminHandler(d.Accounts)
	auditHandler := handler.NewAuditHandler(d.Audit)
	admin := e.Group("/admin", authenticate)
	admin.PUT("/users/:id/role", adminHandler.AssignRole,
		middleware.RequirePermission(d.RBAC, domain.PermUsersRolesAssign),
		middleware.Audit(d.Recorder, domain.ActionRoleChange, "user", domain.SeverityCritical))
	admin.GET("/audit", auditHandler.Logs,
		middleware.RequirePermission(d.RBAC, domain.PermAuditRead))
	admin.GET("/audit/stats", auditHandler.Stats,
		middleware.RequirePermission(d.RBAC, domain.PermAuditRead))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational surfaces ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
