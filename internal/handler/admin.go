package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/service"
	"github.com/iliyamo/bookcore/internal/storage"
)

// Uploader presigns object uploads.  *storage.Presigner implements it.
type Uploader interface {
	PresignUpload(ctx context.Context, kind, filename string) (storage.Upload, error)
}

// AdminHandler serves the admin-only endpoints.
type AdminHandler struct {
	Catalog *service.CatalogService
	Orders  *service.OrderService
	Users   *service.UserService
	Uploads Uploader // nil when object storage is not configured
}

func NewAdminHandler(catalog *service.CatalogService, orders *service.OrderService, users *service.UserService, uploads Uploader) *AdminHandler {
	if catalog == nil || orders == nil || users == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Catalog: catalog, Orders: orders, Users: users, Uploads: uploads}
}

// CreateBook handles POST /v1/admin/books.
func (h *AdminHandler) CreateBook(c echo.Context) error {
	var in service.BookInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Catalog.Create(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// UpdateBook handles PUT and PATCH /v1/admin/books/:id.  Omitted fields
// keep their value; availability cannot be set here.
func (h *AdminHandler) UpdateBook(c echo.Context) error {
	var in service.BookInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Catalog.Update(ctx, c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteBook handles DELETE /v1/admin/books/:id.
func (h *AdminHandler) DeleteBook(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Catalog.Delete(ctx, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOrders handles GET /v1/admin/orders.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Orders.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AcceptOrder handles PUT /v1/admin/orders/:id/accept.
func (h *AdminHandler) AcceptOrder(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Accept(ctx, c.Param("id"), adminID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type rejectReq struct {
	Notes string `json:"notes"`
}

// RejectOrder handles PUT /v1/admin/orders/:id/reject {notes}.
func (h *AdminHandler) RejectOrder(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req rejectReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Reject(ctx, c.Param("id"), adminID, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteUser handles DELETE /v1/admin/users/:id.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, adminID, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /v1/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Users.Dashboard(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

type uploadReq struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
}

// PresignUpload handles POST /v1/admin/uploads {kind, filename}.
func (h *AdminHandler) PresignUpload(c echo.Context) error {
	if h.Uploads == nil {
		return respondError(c, storage.ErrDisabled)
	}
	var req uploadReq
	if err := c.Bind(&req); err != nil || req.Filename == "" {
		return badRequest(c, "kind and filename required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	up, err := h.Uploads.PresignUpload(ctx, req.Kind, req.Filename)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, up)
}
