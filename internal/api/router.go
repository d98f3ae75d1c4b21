package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/halolight/halolight/internal/common/httpmw"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/fixtures"
	"github.com/halolight/halolight/internal/identity"
)

// Deps carries everything the router needs. Audit is optional; without it
// the /api/audit route is not registered.
type Deps struct {
	Identity *identity.Service
	Fixtures *fixtures.Store
	Audit    *identity.Auditor
	Log      *logger.Logger
}

// NewRouter builds the Gin engine with all REST routes registered. The /ws
// gateway route is attached separately by the caller.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(deps.Log, "api"))
	router.Use(httpmw.OtelTracing("api"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := &authHandlers{ids: deps.Identity}
	usersH := &userHandlers{ids: deps.Identity}
	rolesH := &roleHandlers{ids: deps.Identity}
	dashH := &dashboardHandlers{data: deps.Fixtures}
	calH := &calendarHandlers{data: deps.Fixtures}
	docsH := &documentHandlers{data: deps.Fixtures}
	filesH := &fileHandlers{data: deps.Fixtures}
	noticesH := &noticeHandlers{data: deps.Fixtures}
	msgH := &messageHandlers{data: deps.Fixtures}
	settingsH := &settingsHandlers{data: deps.Fixtures}
	profileH := &profileHandlers{data: deps.Fixtures}

	api := router.Group("/api")

	// Public auth endpoints.
	api.POST("/auth/login", authH.login)
	api.POST("/auth/refresh", authH.refresh)

	// Everything else requires a valid access token.
	protected := api.Group("")
	protected.Use(AuthRequired(deps.Identity.VerifyAccess))

	protected.POST("/auth/logout", authH.logout)
	protected.GET("/auth/profile", authH.profile)

	protected.GET("/users", usersH.list)
	protected.POST("/users", usersH.create)
	protected.GET("/users/:id", usersH.get)
	protected.PUT("/users/:id", usersH.update)
	protected.DELETE("/users/:id", usersH.delete)

	protected.GET("/roles", rolesH.list)
	protected.POST("/roles", rolesH.create)
	protected.GET("/roles/:id", rolesH.get)
	protected.PUT("/roles/:id", rolesH.update)
	protected.DELETE("/roles/:id", rolesH.delete)

	protected.GET("/dashboard/stats", dashH.stats)
	protected.GET("/dashboard/activities", dashH.activities)

	protected.GET("/calendar/events", calH.list)
	protected.POST("/calendar/events", calH.create)
	protected.PUT("/calendar/events/:id", calH.update)
	protected.DELETE("/calendar/events/:id", calH.delete)

	protected.GET("/documents", docsH.list)
	protected.POST("/documents", docsH.create)
	protected.PUT("/documents/:id", docsH.update)
	protected.DELETE("/documents/:id", docsH.delete)

	protected.GET("/files", filesH.list)
	protected.POST("/files", filesH.create)
	protected.PUT("/files/:id", filesH.update)
	protected.DELETE("/files/:id", filesH.delete)

	protected.GET("/notifications", noticesH.list)
	protected.POST("/notifications/:id/read", noticesH.markRead)
	protected.POST("/notifications/read-all", noticesH.markAllRead)
	protected.DELETE("/notifications", noticesH.clear)

	protected.GET("/conversations", msgH.listConversations)
	protected.GET("/conversations/:id/messages", msgH.listMessages)
	protected.POST("/conversations/:id/messages", msgH.send)

	protected.GET("/settings", settingsH.get)
	protected.PUT("/settings", settingsH.update)

	protected.GET("/profile", profileH.get)
	protected.PUT("/profile", profileH.update)

	if deps.Audit != nil {
		auditH := &auditHandlers{audit: deps.Audit}
		protected.GET("/audit", auditH.recent)
	}

	return router
}
