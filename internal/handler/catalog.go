package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/model"
	"github.com/iliyamo/bookcore/internal/service"
)

// CatalogHandler serves the public, unauthenticated catalog.
type CatalogHandler struct {
	Catalog *service.CatalogService
	Loans   *service.LoanService
}

func NewCatalogHandler(catalog *service.CatalogService, loans *service.LoanService) *CatalogHandler {
	if catalog == nil || loans == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: catalog, Loans: loans}
}

// ListBooks handles GET /v1/books?genre=&available=&limit=.
func (h *CatalogHandler) ListBooks(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		return badRequest(c, "invalid limit")
	}
	f := model.BookFilter{Limit: limit, Genre: c.QueryParam("genre")}
	if v := c.QueryParam("available"); v != "" {
		if f.AvailableOnly, err = strconv.ParseBool(v); err != nil {
			return badRequest(c, "invalid available")
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	books, err := h.Catalog.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": books})
}

// GetBook handles GET /v1/books/:id.
func (h *CatalogHandler) GetBook(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Catalog.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Availability handles GET /v1/books/:id/availability.  It is never cached.
func (h *CatalogHandler) Availability(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	id := c.Param("id")
	ok, err := h.Loans.Availability(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book_id": id, "is_available": ok})
}

// Recommendations handles GET /v1/books/:id/recommendations.
func (h *CatalogHandler) Recommendations(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	books, err := h.Catalog.Recommendations(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": books})
}

// Search handles GET /v1/search/books?q=&mode=prefix|contains&limit=.
func (h *CatalogHandler) Search(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		return badRequest(c, "invalid limit")
	}
	mode := c.QueryParam("mode")
	if mode == "" {
		mode = service.SearchPrefix
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	books, err := h.Catalog.Search(ctx, c.QueryParam("q"), mode, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": books, "mode": mode})
}
