package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/bookcore/internal/logging"
)

// RequestLogger emits one structured record per request.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"ip", v.RemoteIP,
				"user", identity(c),
			}
			if v.RequestID != "" {
				args = append(args, "request_id", v.RequestID)
			}
			if v.Error != nil {
				args = append(args, "err", v.Error.Error())
			}
			ctx := c.Request().Context()
			switch requestLevel(v.Status, v.Error) {
			case slog.LevelError:
				log.Error(ctx, "request", args...)
			case slog.LevelWarn:
				log.Warn(ctx, "request", args...)
			default:
				log.Info(ctx, "request", args...)
			}
			return nil
		},
	})
}

// requestLevel: server errors at error, client errors at warn, rest at info.
func requestLevel(status int, err error) slog.Level {
	switch {
	case err != nil || status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
