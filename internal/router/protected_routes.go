package router

import (
	"github.com/labstack/echo/v4"
)

// registerProtected sets up every endpoint that needs a bearer token. Role
// and ownership rules live in the policy engine, not here; the only
// route-level guard is authentication itself.
func registerProtected(e *echo.Echo, d Deps, required, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", required, limiter)

	g.GET("/me", d.Auth.Me)
	g.PATCH("/me", d.UserH.UpdateProfile)
	g.GET("/me/photo", d.UserH.Photo)

	g.POST("/sermons", d.Sermons.Create)
	g.PATCH("/sermons/:id", d.Sermons.Update)
	g.DELETE("/sermons/:id", d.Sermons.Delete)

	g.POST("/prayers", d.Prayers.Create)
	g.PATCH("/prayers/:id", d.Prayers.Update)
	g.DELETE("/prayers/:id", d.Prayers.Delete)

	g.POST("/books", d.Books.Create)
	g.PATCH("/books/:id", d.Books.Update)
	g.DELETE("/books/:id", d.Books.Delete)

	g.POST("/materials", d.Materials.Create)
	g.PATCH("/materials/:id", d.Materials.Update)
	g.DELETE("/materials/:id", d.Materials.Delete)

	g.POST("/assignments", d.Assignments.Create)
	g.PATCH("/assignments/:id", d.Assignments.Update)
	g.DELETE("/assignments/:id", d.Assignments.Delete)

	g.POST("/assignments/:id/submissions", d.Assignments.Submit)
	g.GET("/assignments/:id/submissions", d.Assignments.ListSubmissions)
	g.GET("/my-submissions", d.Assignments.MySubmissions)
	g.GET("/submissions/:id", d.Assignments.GetSubmission)
	g.GET("/submissions/:id/file", d.Assignments.SubmissionFile)
	g.DELETE("/submissions/:id", d.Assignments.DeleteSubmission)
	g.POST("/submissions/:id/grade", d.Assignments.Grade)
}
