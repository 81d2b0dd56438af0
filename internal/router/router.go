package router

import (
	"time"

	"github.com/ctkuo2438/NUboard/internal/config"
	"github.com/ctkuo2438/NUboard/internal/handler"
	"github.com/ctkuo2438/NUboard/internal/middleware"
	"github.com/ctkuo2438/NUboard/internal/model"
	"github.com/ctkuo2438/NUboard/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Authorization *handler.AuthorizationHandler
	Activity      *handler.ActivityWSHandler
	System        *handler.SystemHandler
}

// Guards are the middlewares protecting authenticated routes.
type Guards struct {
	Tokens  middleware.TokenValidator
	Access  middleware.AccessResolver
	Limiter *middleware.RateLimiter // nil disables admin rate limiting
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(guards Guards, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli(cfg.BrotliMinLength))

	router.GET("/health", handlers.System.Health)

	authenticated := []gin.HandlerFunc{
		middleware.RequireJWT(guards.Tokens),
		middleware.LoadAccess(guards.Access),
		middleware.NoStore(),
	}

	// ─── 1. Self Service (any enabled user) ────────────────────────────
	self := router.Group("/api/v1")
	self.Use(authenticated...)
	{
		self.GET("/me", handlers.Authorization.Me)
	}

	// ─── 2. Admin Group (JWT + enabled + ADMIN) ────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(authenticated...)
	adminAPI.Use(middleware.RequireRole(model.RoleAdmin))
	if guards.Limiter != nil {
		adminAPI.Use(guards.Limiter.Middleware())
	}
	{
		// Roles
		adminAPI.GET("/roles", handlers.Authorization.ListRoles)
		adminAPI.GET("/roles/:name/users",
			middleware.RequirePermission(model.PermissionUserView),
			handlers.Authorization.UsersByRole,
		)
		adminAPI.GET("/roles/:name/permissions", handlers.Authorization.RolePermissions)
		adminAPI.POST("/roles/:name/permissions", handlers.Authorization.GrantPermission)
		adminAPI.DELETE("/roles/:name/permissions/:permission", handlers.Authorization.RevokePermission)

		// Permissions
		adminAPI.GET("/permissions", handlers.Authorization.ListPermissions)
		adminAPI.GET("/permissions/:name/roles", handlers.Authorization.PermissionRoles)
		adminAPI.DELETE("/permissions/:name", handlers.Authorization.DeletePermission)

		// Users
		adminAPI.GET("/users/roles",
			middleware.RequirePermission(model.PermissionUserView),
			handlers.Authorization.ListUsersWithRoles,
		)
		adminAPI.GET("/users/search",
			middleware.RequirePermission(model.PermissionUserView),
			handlers.Authorization.SearchUsers,
		)
		adminAPI.POST("/users/:id/roles",
			middleware.RequirePermission(model.PermissionUserUpdate),
			handlers.Authorization.AssignRole,
		)
		adminAPI.DELETE("/users/:id/roles/:role",
			middleware.RequirePermission(model.PermissionUserUpdate),
			handlers.Authorization.RemoveRole,
		)
		adminAPI.PUT("/users/:id/status",
			middleware.RequirePermission(model.PermissionUserUpdate),
			handlers.Authorization.UpdateStatus,
		)

		// Reports
		adminAPI.GET("/activity/roles", handlers.Authorization.RecentActivity)
		adminAPI.GET("/statistics", handlers.Authorization.Statistics)
	}

	// ─── 3. WebSocket Group (token query + ADMIN) ──────────────────────
	ws := router.Group("/ws/v1/admin")
	ws.Use(
		middleware.RequireWSAuth(guards.Tokens),
		middleware.LoadAccess(guards.Access),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		ws.GET("/activity", handlers.Activity.Stream)
	}

	return router
}
