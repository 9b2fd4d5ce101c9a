package handlers

import (
	"net/http"
	"time"

	apimw "auction-marketplace/internal/api/middleware"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the auction service's echo instance with every route
// registered.
func NewRouter(h *ListingHandler, log logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))
	e.Use(apimw.Metrics())

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Debug("Request handled",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start).String())
			return err
		}
	})

	api := e.Group("/api/v1")
	api.POST("/listings", h.CreateListing)
	api.GET("/listings/:id", h.GetListing)
	api.PUT("/listings/:id/availability", h.UpdateAvailability)
	api.DELETE("/listings/:id/schedule", h.CancelSchedule)
	api.POST("/listings/:id/expert", h.AssignExpert)
	api.POST("/listings/:id/bids", h.PlaceBid)
	api.POST("/listings/:id/settle", h.Settle)
	api.GET("/users/:id/outbid", h.ScanOutbid)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
