// Package router wires handlers, middleware and URL paths together. Route
// registration is split by audience: public browse, authenticated, and the
// admin account surface.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ministryhub/platform/internal/config"
	"github.com/ministryhub/platform/internal/handler"
	"github.com/ministryhub/platform/internal/middleware"
	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/repository"
)

// Deps carries everything route registration needs.
type Deps struct {
	Cfg         config.Config
	Users       *repository.UserRepo
	Auth        *handler.AuthHandler
	UserH       *handler.UserHandler
	Sermons     *handler.SermonHandler
	Prayers     *handler.PrayerHandler
	Books       *handler.BookHandler
	Materials   *handler.MaterialHandler
	Assignments *handler.AssignmentHandler
	Redis       *redis.Client
}

// RegisterAll sets up every route. Public browse endpoints run behind
// optional auth (owners see their drafts), the response cache and the rate
// limiter; mutation endpoints require a bearer token and skip the cache.
func RegisterAll(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), d.Redis)
	optional := middleware.OptionalAuth(d.Cfg.JWTSecret, d.Users)
	required := middleware.RequireAuth(d.Cfg.JWTSecret, d.Users)

	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/change-password", d.Auth.ChangePassword, required)

	registerBrowse(e, d, optional, limiter, cache)
	registerProtected(e, d, required, limiter)

	admin := e.Group("/v1/users", required, limiter, middleware.RequireRole(model.RoleAdmin))
	admin.GET("", d.UserH.List)
	admin.GET("/:id", d.UserH.Get)
	admin.PATCH("/:id", d.UserH.Update)
	admin.DELETE("/:id", d.UserH.Deactivate)
}
