package models

// JobState is the server-reported state of an upload processing job.
type JobState string

const (
	JobStatePending    JobState = "PENDING"
	JobStateProcessing JobState = "PROCESSING"
	JobStateCompleted  JobState = "COMPLETED"
	JobStateFailed     JobState = "FAILED"
)

// IsTerminal reports whether no further status changes are expected.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// IsKnown reports whether s is one of the four documented states.
func (s JobState) IsKnown() bool {
	switch s {
	case JobStatePending, JobStateProcessing, JobStateCompleted, JobStateFailed:
		return true
	default:
		return false
	}
}

// JobHandle is returned by the upload endpoint.
type JobHandle struct {
	JobID string `json:"jobId" msgpack:"jobId"`
}

// JobStatus is the payload of GET /job-status/{jobId}.
type JobStatus struct {
	Processed int      `json:"processed" msgpack:"processed"`
	Total     int      `json:"total" msgpack:"total"`
	Status    JobState `json:"status" msgpack:"status"`
}

// Percent returns floor(processed/total*100) clamped to [0,100], or 0 when total is 0.
func Percent(processed, total int) int {
	if total <= 0 || processed <= 0 {
		return 0
	}
	p := int(int64(processed) * 100 / int64(total))
	if p > 100 {
		return 100
	}
	return p
}

// Percent is the progress percentage of this status.
func (s JobStatus) Percent() int {
	return Percent(s.Processed, s.Total)
}
