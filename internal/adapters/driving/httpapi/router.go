package httpapi

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// DefaultBodyLimit caps request bodies, uploads included.
const DefaultBodyLimit = "64M"

// NewRouter registers the API routes on a fresh echo instance.
func NewRouter(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.BodyLimit(DefaultBodyLimit))

	e.GET("/health", h.Health)

	e.POST("/upload", h.Upload)
	e.POST("/upload-pdf", h.Upload)
	e.POST("/query", h.Query)
	e.GET("/retrieve", h.Retrieve)

	return e
}
