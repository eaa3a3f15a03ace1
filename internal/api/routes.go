// routes.go - Route registration helpers
// This file provides a clean way to register all console routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ngo-impact/impact-client/internal/storage"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/rs/zerolog/log"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Store
	Sessions  SessionManager
	Service   ImpactService
	Inspector Inspector
	// Validator is the file policy of the session controllers; zero means the default.
	Validator  upload.Validator
	ServiceURL string
	Version    string
	// SessionCount feeds the health endpoint; optional.
	SessionCount func() int
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Session   SessionHandler
	Report    ReportHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	validator := deps.Validator
	if validator.MaxBytes <= 0 {
		validator = upload.DefaultValidator()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.ServiceURL, deps.SessionCount),
		Session:   NewSessionHandler(deps.Store, deps.Sessions, deps.Inspector, validator),
		Report:    NewReportHandler(deps.Service),
		WebSocket: NewWebSocketHandler(deps.Sessions),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Upload sessions
	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Session.HandleCreateSession)
	sessions.GET("/:id", handlers.Session.HandleGetSession)
	sessions.POST("/:id/file", handlers.Session.HandleSelectFile)
	sessions.POST("/:id/start", handlers.Session.HandleStartUpload)
	sessions.POST("/:id/reset", handlers.Session.HandleResetSession)
	sessions.POST("/:id/retry", handlers.Session.HandleRetryUpload)
	sessions.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessions.GET("/:id/progress", handlers.Session.HandleProgressStream)
	sessions.GET("/:id/ws", handlers.WebSocket.HandleWebSocket)

	// One-shot calls to the impact service
	apiGroup.POST("/report", handlers.Report.HandleSubmitReport)
	apiGroup.GET("/dashboard", handlers.Report.HandleDashboard)
}

// MiddlewareConfig selects the optional middleware.
type MiddlewareConfig struct {
	EnableRequestLogging bool
	EnableCORS           bool
	AllowOrigins         string
	BodyLimit            string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				strings.HasSuffix(path, "/ws") ||
				strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("requestId", v.RequestID).
				Msg("Request")
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	e.Use(middleware.RequestID())

	if cfg.BodyLimit != "" {
		// file selection bounds its own read so oversized files are rejected by the validator
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Skipper: isFileSelection,
			Limit:   cfg.BodyLimit,
		}))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func isFileSelection(c echo.Context) bool {
	path := c.Request().URL.Path
	return c.Request().Method == http.MethodPost &&
		strings.HasPrefix(path, "/api/sessions/") &&
		strings.HasSuffix(path, "/file")
}
