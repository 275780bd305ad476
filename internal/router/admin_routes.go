package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/handler"
	"github.com/iliyamo/bookcore/internal/middleware"
	"github.com/iliyamo/bookcore/internal/model"
)

// RegisterAdmin registers /v1/admin.  Every route requires the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, invalidate echo.MiddlewareFunc) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	books := g.Group("/books", invalidate)
	books.POST("", h.CreateBook)
	books.PUT("/:id", h.UpdateBook)
	books.PATCH("/:id", h.UpdateBook)
	books.DELETE("/:id", h.DeleteBook)

	g.GET("/orders", h.ListOrders)
	g.PUT("/orders/:id/accept", h.AcceptOrder, invalidate)
	g.PUT("/orders/:id/reject", h.RejectOrder)

	g.GET("/users", h.ListUsers)
	g.DELETE("/users/:id", h.DeleteUser)
	g.GET("/stats", h.Stats)

	g.POST("/uploads", h.PresignUpload)
}
