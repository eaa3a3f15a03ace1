// handlers_report.go - Single report submission and dashboard proxies
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/client"
	"github.com/ngo-impact/impact-client/internal/models"
)

// ReportHandlerImpl implements the ReportHandler interface
type ReportHandlerImpl struct {
	service ImpactService
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ImpactService) ReportHandler {
	return &ReportHandlerImpl{service: service}
}

// dashboardResponse adds the rendered funds figure to the summary.
type dashboardResponse struct {
	models.DashboardSummary
	Month        string `json:"month"`
	FundsDisplay string `json:"fundsDisplay"`
}

// HandleSubmitReport validates a report and forwards it to the service
func (h *ReportHandlerImpl) HandleSubmitReport(c echo.Context) error {
	var r models.Report
	if err := c.Bind(&r); err != nil {
		return NewBadRequestError("invalid report body", err)
	}
	if err := r.Validate(); err != nil {
		return NewValidationError(err.Error())
	}

	if err := h.service.SubmitReport(c.Request().Context(), r); err != nil {
		return upstreamError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "submitted"})
}

// HandleDashboard fetches the aggregate for ?month=YYYY-MM
func (h *ReportHandlerImpl) HandleDashboard(c echo.Context) error {
	month := c.QueryParam("month")
	if err := models.ValidateMonth(month); err != nil {
		return NewValidationError(err.Error())
	}

	summary, err := h.service.Dashboard(c.Request().Context(), month)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(http.StatusOK, dashboardResponse{
		DashboardSummary: summary,
		Month:            month,
		FundsDisplay:     summary.FundsDisplay(),
	})
}

func upstreamError(err error) *APIError {
	var te *client.TransportError
	if errors.As(err, &te) {
		return NewBadGatewayError(te.Error(), te.Details)
	}
	return NewBadGatewayError("impact service request failed", err)
}
