package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/handler"
)

// RegisterPublic registers the guest catalog.  cache wraps the listing and
// search routes; availability always reads through.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/books", h.ListBooks, cache)
	e.GET("/v1/books/:id", h.GetBook, cache)
	e.GET("/v1/books/:id/recommendations", h.Recommendations, cache)
	e.GET("/v1/search/books", h.Search, cache)
	e.GET("/v1/books/:id/availability", h.Availability)
}
