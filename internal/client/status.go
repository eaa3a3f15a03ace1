package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ngo-impact/impact-client/internal/models"
)

// JobStatus fetches GET /job-status/{jobID}.
func (c *Client) JobStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/job-status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return models.JobStatus{}, &TransportError{Op: "status check", Message: err.Error(), Details: err}
	}

	var status models.JobStatus
	if err := c.do(req, "status check", &status); err != nil {
		return models.JobStatus{}, err
	}
	return status, nil
}
