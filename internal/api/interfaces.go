// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/upload"
)

// SessionHandler binds console requests to a session's upload controller intents
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleStartUpload(c echo.Context) error
	HandleResetSession(c echo.Context) error
	HandleRetryUpload(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleProgressStream(c echo.Context) error
}

// ReportHandler proxies the one-shot report and dashboard calls
type ReportHandler interface {
	HandleSubmitReport(c echo.Context) error
	HandleDashboard(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for console session management
// This allows mocking in tests
type SessionManager interface {
	CreateSession() (*models.ConsoleSession, error)
	GetSession(id string) (*models.ConsoleSession, bool)
	Controller(id string) (*upload.Controller, bool)
	TouchSession(id string) bool
	SetStagedFile(id, fileID string, inspection *models.CSVSummary) bool
}

// ImpactService is the remote service as far as the console needs it
type ImpactService interface {
	SubmitReport(ctx context.Context, r models.Report) error
	Dashboard(ctx context.Context, month string) (models.DashboardSummary, error)
}

// Inspector takes an advisory look at a staged CSV
type Inspector interface {
	Inspect(filePath string) (*models.CSVSummary, error)
}
