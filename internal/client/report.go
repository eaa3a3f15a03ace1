package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/rs/zerolog/log"
)

// SubmitReport posts a single monthly report. The report is validated locally first.
func (c *Client) SubmitReport(ctx context.Context, r models.Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, contentType, err := c.encodeBody(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/report", body)
	if err != nil {
		return &TransportError{Op: "report", Message: err.Error(), Details: err}
	}
	req.Header.Set("Content-Type", contentType)

	if err := c.do(req, "report", nil); err != nil {
		return err
	}
	log.Info().Str("ngoId", r.NGOID).Str("month", r.Month).Msg("Report submitted")
	return nil
}

// Dashboard fetches the aggregate for month (YYYY-MM).
func (c *Client) Dashboard(ctx context.Context, month string) (models.DashboardSummary, error) {
	if err := models.ValidateMonth(month); err != nil {
		return models.DashboardSummary{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	q := url.Values{"month": {month}}
	req, err := c.newRequest(ctx, http.MethodGet, "/dashboard?"+q.Encode(), nil)
	if err != nil {
		return models.DashboardSummary{}, &TransportError{Op: "dashboard", Message: err.Error(), Details: err}
	}

	var summary models.DashboardSummary
	if err := c.do(req, "dashboard", &summary); err != nil {
		return models.DashboardSummary{}, err
	}
	return summary, nil
}
