package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Log      *slog.Logger
	Issuer   ports.TokenIssuer
	Cache    ports.Cache
	Auth     *service.AuthService
	Sessions *service.SessionService
	Profiles *service.ProfileService
	Admin    *service.AdminService

	RateLimitMax    int64
	RateLimitWindow time.Duration
}

// SetupRouter sets up the Gin router with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Log != nil {
		router.Use(RequestLogger(deps.Log))
	}

	authHandlers := NewAuthHandlers(deps.Auth)
	sessionHandlers := NewSessionHandlers(deps.Sessions)
	profileHandlers := NewProfileHandlers(deps.Profiles)
	adminHandlers := NewAdminHandlers(deps.Admin)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := AuthMiddleware(deps.Issuer, deps.Auth)

	// Unauthenticated entry points are the ones worth rate limiting;
	// everything past the auth gate already costs a valid session.
	auth := router.Group("/auth")
	auth.Use(RateLimit(deps.Cache, deps.RateLimitMax, deps.RateLimitWindow))
	{
		auth.POST("/connect", authHandlers.Connect)
		auth.POST("/verify", authHandlers.Verify)
		auth.POST("/refresh", authHandlers.Refresh)
	}
	router.POST("/auth/logout", requireAuth, authHandlers.Logout)

	// Profiles are publicly readable; writes require a session.
	router.GET("/profiles/:address", profileHandlers.GetByAddress)

	api := router.Group("/api")
	api.Use(requireAuth)
	{
		api.GET("/me", authHandlers.Me)

		api.GET("/sessions", sessionHandlers.List)
		api.DELETE("/sessions/:id", sessionHandlers.Revoke)
		api.DELETE("/sessions", sessionHandlers.RevokeAll)

		api.POST("/profile", profileHandlers.Create)
		api.GET("/profile", profileHandlers.Get)
		api.PUT("/profile", profileHandlers.Update)
		api.DELETE("/profile", profileHandlers.Deactivate)
		api.GET("/profile/ledger-status", profileHandlers.LedgerStatus)
	}

	admin := router.Group("/admin")
	admin.Use(requireAuth, RequireRole(core.RoleAdmin))
	{
		admin.GET("/users", adminHandlers.ListUsers)
		admin.PUT("/users/:address/roles", adminHandlers.UpdateRoles)
		admin.POST("/users/:address/deactivate", adminHandlers.Deactivate)
		admin.POST("/users/:address/reactivate", adminHandlers.Reactivate)
		admin.DELETE("/users/:address/sessions", adminHandlers.InvalidateSessions)
		admin.GET("/stats", adminHandlers.Stats)
	}

	return router
}
