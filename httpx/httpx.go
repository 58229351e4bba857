// Package httpx bridges token verification into Echo applications.
package httpx

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Context aliases echo.Context so callers can stay within httpx imports.
type Context = echo.Context

// HandlerFunc aliases echo.HandlerFunc.
type HandlerFunc = echo.HandlerFunc

// MiddlewareFunc aliases echo.MiddlewareFunc.
type MiddlewareFunc = echo.MiddlewareFunc

// New creates a bare Echo instance with the banner silenced.
func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// HTTPError constructs an echo HTTPError without importing echo in callers.
func HTTPError(code int, message any) error { return echo.NewHTTPError(code, message) }

// RecoverMiddleware returns Echo's recover middleware.
func RecoverMiddleware() MiddlewareFunc { return middleware.Recover() }

// LoggerMiddleware returns Echo's request logger middleware.
func LoggerMiddleware() MiddlewareFunc { return middleware.Logger() }
