// Package server assembles every handler into the HTTP API.
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/admin"
	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/billing"
	"github.com/mikepea/creatorhub/pkg/creatorhub/channels"
	"github.com/mikepea/creatorhub/pkg/creatorhub/courses"
	"github.com/mikepea/creatorhub/pkg/creatorhub/events"
	"github.com/mikepea/creatorhub/pkg/creatorhub/livestreams"
	"github.com/mikepea/creatorhub/pkg/creatorhub/logger"
	"github.com/mikepea/creatorhub/pkg/creatorhub/onboarding"
	"github.com/mikepea/creatorhub/pkg/creatorhub/organizations"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tenancy"
	"github.com/mikepea/creatorhub/pkg/creatorhub/tiers"
	"gorm.io/gorm"
)

// Deps are the collaborators the router wires into handlers. Guard and
// Publisher default to in-process implementations when nil.
type Deps struct {
	DB            *gorm.DB
	ServiceName   string
	BaseDomain    string
	WebhookSecret string
	WebDistPath   string
	Guard         onboarding.SessionGuard
	Publisher     events.Publisher
}

// spaRoutes are the frontend pages served index.html
var spaRoutes = []string{"/", "/login", "/register", "/onboarding", "/dashboard", "/community", "/courses", "/memberships", "/livestreams", "/settings"}

// NewRouter builds the gin engine with all routes registered
func NewRouter(d Deps) *gin.Engine {
	if d.Guard == nil {
		d.Guard = onboarding.NewMemoryGuard(24 * time.Hour)
	}
	if d.Publisher == nil {
		d.Publisher = events.NewLogPublisher(nil)
	}
	if d.ServiceName == "" {
		d.ServiceName = "creatorhub"
	}

	r := gin.New()
	r.Use(logger.GinMiddleware(), logger.Recovery())

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": d.ServiceName})
	}
	r.GET("/health", health)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		// Auth routes (public)
		auth.NewHandler(d.DB).RegisterRoutes(api.Group("/auth"))

		// Organization management (JWT)
		orgHandler := organizations.NewHandler(d.DB)
		orgs := api.Group("/organizations", auth.AuthMiddleware())
		orgHandler.RegisterRoutes(orgs)
		orgHandler.RegisterMemberRoutes(orgs)
		orgHandler.RegisterDomainRoutes(orgs)

		// Onboarding and tour (JWT)
		onboarding.NewHandler(d.DB, d.Guard).RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Billing webhooks (signature verified)
		billing.NewHandler(d.DB, d.WebhookSecret, d.Publisher).RegisterRoutes(api)

		// Platform admin (JWT, admin role required)
		adminGroup := api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin())
		admin.NewHandler(d.DB).RegisterRoutes(adminGroup)

		// Tenant-scoped routes: resolve the organization, then the viewer
		tenant := api.Group("/t",
			tenancy.NewResolver(d.DB, d.BaseDomain).Middleware(),
			auth.OptionalAuth(),
			tenancy.ViewerMiddleware(d.DB),
		)
		tiers.NewHandler(d.DB).RegisterRoutes(tenant)
		channels.NewHandler(d.DB).RegisterRoutes(tenant)
		courses.NewHandler(d.DB).RegisterRoutes(tenant)
		livestreams.NewHandler(d.DB).RegisterRoutes(tenant)
	}

	serveFrontend(r, d.WebDistPath)
	return r
}

// serveFrontend serves the built single-page app when dist exists. It reports
// whether a build was found.
func serveFrontend(r *gin.Engine, dist string) bool {
	if dist == "" {
		return false
	}
	if _, err := os.Stat(dist); err != nil {
		return false
	}

	r.Static("/assets", filepath.Join(dist, "assets"))
	r.StaticFile("/favicon.ico", filepath.Join(dist, "favicon.ico"))

	indexHTML := filepath.Join(dist, "index.html")
	for _, route := range spaRoutes {
		r.GET(route, func(c *gin.Context) {
			c.File(indexHTML)
		})
	}
	r.GET("/community/*path", func(c *gin.Context) {
		c.File(indexHTML)
	})
	r.GET("/courses/*path", func(c *gin.Context) {
		c.File(indexHTML)
	})
	return true
}
