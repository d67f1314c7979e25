package router

import (
	"github.com/labstack/echo/v4"
)

// registerBrowse sets up the read-only content surface. Everything here is
// reachable anonymously; optional auth only widens visibility for owners and
// admins. List/detail responses go through the cache, asset streams do not.
func registerBrowse(e *echo.Echo, d Deps, optional, limiter, cache echo.MiddlewareFunc) {
	// Auth runs before the limiter so buckets key on the account, not the IP.
	cached := e.Group("/v1", optional, limiter, cache)
	raw := e.Group("/v1", optional, limiter)

	cached.GET("/sermons", d.Sermons.List)
	cached.GET("/sermons/:id", d.Sermons.Get)
	raw.GET("/sermons/:id/image", d.Sermons.Asset("image"))
	raw.GET("/sermons/:id/audio", d.Sermons.Asset("audio"))

	cached.GET("/prayers", d.Prayers.List)
	cached.GET("/prayers/:id", d.Prayers.Get)
	raw.GET("/prayers/:id/image", d.Prayers.Image)

	cached.GET("/books", d.Books.List)
	cached.GET("/books/:id", d.Books.Get)
	raw.GET("/books/:id/cover", d.Books.Cover)
	raw.GET("/books/:id/download", d.Books.Download)

	cached.GET("/materials", d.Materials.List)
	cached.GET("/materials/categories", d.Materials.Categories)
	cached.GET("/materials/tags", d.Materials.Tags)
	// Detail reads bump the view counter, so they bypass the cache.
	raw.GET("/materials/:id", d.Materials.Get)
	raw.GET("/materials/:id/file", d.Materials.File)
	raw.GET("/materials/:id/download", d.Materials.Download)
	raw.GET("/materials/:id/thumbnail", d.Materials.Thumbnail)

	cached.GET("/assignments", d.Assignments.List)
	cached.GET("/assignments/:id", d.Assignments.Get)
	raw.GET("/assignments/:id/file", d.Assignments.File)
}
