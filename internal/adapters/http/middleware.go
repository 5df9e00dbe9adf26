package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/hopetreehub/innerspell/internal/auth"
	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/metrics"
)

const (
	headerRequestID = "X-Request-Id"
	viewerKey       = "viewer"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = generateID()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set("request_id", id)
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields. It is the one
// place errors reach echo's error handler, so the logged status is final and
// middleware outside it sees a committed response.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			logger.Info("request",
				"request_id", c.Get("request_id"),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route", c.Path(),
				"user_id", viewerFrom(c).UserID,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// MetricsMiddleware records request counts and latency per route pattern.
// It must wrap LoggingMiddleware.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := m.RequestStarted()
			defer done()

			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return err
		}
	}
}

// AuthMiddleware builds the request's Viewer from an optional bearer token.
// Requests without a token are guests; a present but invalid token is
// rejected.
func AuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				c.Set(viewerKey, domain.Viewer{})
				return next(c)
			}
			token, ok := auth.BearerToken(header)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errEnvelope("invalid authorization header"))
			}
			viewer, err := auth.Verify(secret, token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errEnvelope("invalid or expired token"))
			}
			c.Set(viewerKey, viewer)
			return next(c)
		}
	}
}

// ContentSecretMiddleware guards the content API with a static shared
// secret. An empty configured secret disables the API.
func ContentSecretMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, errEnvelope("unauthorized"))
			}
			return next(c)
		}
	}
}

// maxLimiters bounds the per-client limiter table; it is reset when full.
const maxLimiters = 10000

// RateLimiter throttles the AI endpoints per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	logger   *slog.Logger
}

func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := viewerFrom(c).UserID
			if key == "" {
				key = c.RealIP()
			}
			if !rl.getLimiter(key).Allow() {
				rl.logger.Warn("rate limit exceeded",
					"request_id", c.Get("request_id"),
					"key", key,
					"path", c.Request().URL.Path,
				)
				return c.JSON(http.StatusTooManyRequests, errEnvelope("too many requests, please try again later"))
			}
			return next(c)
		}
	}
}

// viewerFrom returns the request's Viewer; a guest when none was set.
func viewerFrom(c echo.Context) domain.Viewer {
	v, _ := c.Get(viewerKey).(domain.Viewer)
	return v
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
