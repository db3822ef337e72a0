// Package http provides the admin console HTTP server.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xiaot623/formdesk/internal/console"
)

// NewConsoleServer creates and configures the admin console HTTP server.
func NewConsoleServer(api SurveyAPI, pe console.PolicyEvaluator, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	NewHandler(api, pe, logger).RegisterRoutes(e)

	return e
}
