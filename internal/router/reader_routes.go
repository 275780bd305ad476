package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/handler"
	"github.com/iliyamo/bookcore/internal/middleware"
	"github.com/iliyamo/bookcore/internal/model"
)

// RegisterReader registers the endpoints of signed-in readers.  Admins
// may use them too.  invalidate runs after successful writes so cached
// listings pick up availability changes.
func RegisterReader(e *echo.Echo, h *handler.ReaderHandler, jwtSecret string, invalidate echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleAdmin),
	)
	g.POST("/books/:id/borrow", h.Borrow, invalidate)
	g.POST("/books/:id/return", h.Return, invalidate)
	g.PATCH("/books/:id/progress", h.UpdateProgress)
	g.GET("/me/borrowed", h.Borrowed)
	g.GET("/me/stats", h.Stats)
	g.POST("/orders", h.PlaceOrder, invalidate)
}
