package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookcore/internal/middleware"
	"github.com/iliyamo/bookcore/internal/repository"
	"github.com/iliyamo/bookcore/internal/service"
	"github.com/iliyamo/bookcore/internal/storage"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds the database work of one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get(middleware.CtxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid user_id in context")
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// respondError maps workflow errors to HTTP statuses.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrNoActiveBorrow):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrBookUnavailable),
		errors.Is(err, service.ErrAlreadyBorrowed),
		errors.Is(err, service.ErrExclusiveBook),
		errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, repository.ErrEmailExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidLoanDays),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidKind):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrDisabled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
