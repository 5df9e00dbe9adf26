package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hopetreehub/innerspell/internal/metrics"
)

const maxBodySize = "1M"

// RouterConfig carries the secrets and shared middleware state for NewRouter.
type RouterConfig struct {
	JWTSecret     []byte
	ContentSecret string
	RateLimiter   *RateLimiter
	Metrics       *metrics.Metrics
}

// NewRouter builds the echo instance with the middleware chain and every
// route registered.
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestIDMiddleware())
	if cfg.Metrics != nil {
		e.Use(MetricsMiddleware(cfg.Metrics))
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}
	e.Use(LoggingMiddleware(logger))
	e.Use(middleware.BodyLimit(maxBodySize))

	limit := passThrough
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Middleware()
	}
	h.Register(e, Guards{
		Auth:          AuthMiddleware(cfg.JWTSecret),
		RateLimit:     limit,
		ContentSecret: ContentSecretMiddleware(cfg.ContentSecret),
	})
	return e
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
