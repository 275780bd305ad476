package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/config"
	"github.com/iliyamo/bookcore/internal/service"
)

// ReaderHandler serves the authenticated reader endpoints: borrowing,
// returning, progress, history, statistics and orders.
type ReaderHandler struct {
	Loans   *service.LoanService
	Orders  *service.OrderService
	Users   *service.UserService
	LoanCfg config.LoanConfig
}

func NewReaderHandler(loans *service.LoanService, orders *service.OrderService, users *service.UserService, cfg config.LoanConfig) *ReaderHandler {
	if loans == nil || orders == nil || users == nil {
		panic("nil service passed to NewReaderHandler")
	}
	return &ReaderHandler{Loans: loans, Orders: orders, Users: users, LoanCfg: cfg}
}

type borrowReq struct {
	Days int `json:"days"`
}

type progressReq struct {
	ReadingProgress int `json:"reading_progress"`
	LastReadPage    int `json:"last_read_page"`
}

type orderReq struct {
	BookID          string `json:"book_id"`
	OrderType       string `json:"order_type"`
	AmountPaidCents uint32 `json:"amount_paid_cents"`
	LoanDays        int    `json:"loan_days"`
}

// loanDays applies the configured default and upper bound.
func (h *ReaderHandler) loanDays(days int) (int, bool) {
	if days == 0 {
		days = h.LoanCfg.DefaultDays
	}
	if h.LoanCfg.MaxDays > 0 && days > h.LoanCfg.MaxDays {
		return days, false
	}
	return days, true
}

// Borrow handles POST /v1/books/:id/borrow {days}.
func (h *ReaderHandler) Borrow(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req borrowReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	days, ok := h.loanDays(req.Days)
	if !ok {
		return respondError(c, service.ErrInvalidLoanDays)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rec, err := h.Loans.Borrow(ctx, uid, c.Param("id"), days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Return handles POST /v1/books/:id/return.
func (h *ReaderHandler) Return(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Loans.Return(ctx, uid, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateProgress handles PATCH /v1/books/:id/progress.
func (h *ReaderHandler) UpdateProgress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req progressReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rec, err := h.Loans.UpdateProgress(ctx, uid, c.Param("id"), req.ReadingProgress, req.LastReadPage)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Borrowed handles GET /v1/me/borrowed.
func (h *ReaderHandler) Borrowed(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Loans.Borrowed(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Stats handles GET /v1/me/stats.
func (h *ReaderHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Users.MonthlyStats(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// PlaceOrder handles POST /v1/orders.
func (h *ReaderHandler) PlaceOrder(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req orderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.BookID == "" {
		return badRequest(c, "book_id required")
	}
	if req.LoanDays != 0 {
		if _, ok := h.loanDays(req.LoanDays); !ok {
			return respondError(c, service.ErrInvalidLoanDays)
		}
	} else {
		req.LoanDays = h.LoanCfg.DefaultDays
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.Place(ctx, uid, service.PlaceOrder{
		BookID: req.BookID, OrderType: req.OrderType, AmountPaidCents: req.AmountPaidCents, LoanDays: req.LoanDays,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}
