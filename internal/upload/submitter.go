package upload

import (
	"context"

	"github.com/ngo-impact/impact-client/internal/models"
)

// Submitter sends an accepted file to the upload endpoint and returns the job it started.
// Implementations issue exactly one request and never retry; failures come back as
// transport errors carrying a readable cause.
type Submitter interface {
	Submit(ctx context.Context, file *models.CandidateFile) (models.JobHandle, error)
}

// StatusSource fetches the current status of a job.
type StatusSource interface {
	JobStatus(ctx context.Context, jobID string) (models.JobStatus, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, file *models.CandidateFile) (models.JobHandle, error)

func (f SubmitterFunc) Submit(ctx context.Context, file *models.CandidateFile) (models.JobHandle, error) {
	return f(ctx, file)
}

// StatusSourceFunc adapts a function to StatusSource.
type StatusSourceFunc func(ctx context.Context, jobID string) (models.JobStatus, error)

func (f StatusSourceFunc) JobStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	return f(ctx, jobID)
}
