package models

import (
	"encoding/json"
	"fmt"
)

// Phase is the lifecycle state of an UploadSession.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseValidated Phase = "validated"
	PhaseUploading Phase = "uploading"
	PhaseTracking  Phase = "tracking"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// IsTerminal reports whether the phase only changes on explicit user action.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// IsActive reports whether an upload request or a poll is in flight.
func (p Phase) IsActive() bool {
	return p == PhaseUploading || p == PhaseTracking
}

// CanTransitionTo checks the state machine's forward edges.
//
//	idle -> validated
//	validated -> validated | uploading | idle
//	uploading -> tracking | failed
//	tracking -> tracking | completed | failed
//	completed, failed -> idle | validated
//
// Reset to idle is allowed from every phase.
func (p Phase) CanTransitionTo(next Phase) bool {
	if next == PhaseIdle {
		return true
	}
	switch p {
	case PhaseIdle:
		return next == PhaseValidated
	case PhaseValidated:
		return next == PhaseValidated || next == PhaseUploading
	case PhaseUploading:
		return next == PhaseTracking || next == PhaseFailed
	case PhaseTracking:
		return next == PhaseTracking || next == PhaseCompleted || next == PhaseFailed
	case PhaseCompleted, PhaseFailed:
		return next == PhaseValidated
	default:
		return false
	}
}

// UploadSession is the UI-observable state owned by one upload controller.
type UploadSession struct {
	File           *CandidateFile `json:"file,omitempty"`
	JobID          string         `json:"jobId,omitempty"`
	Phase          Phase          `json:"phase"`
	JobState       JobState       `json:"jobState,omitempty"`
	ProcessedCount int            `json:"processedCount"`
	TotalCount     int            `json:"totalCount"`
	Progress       int            `json:"progress"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
}

// StatusText renders "processed/total (STATE)" once a job is being tracked.
func (s UploadSession) StatusText() string {
	if s.JobState == "" {
		return ""
	}
	return fmt.Sprintf("%d/%d (%s)", s.ProcessedCount, s.TotalCount, s.JobState)
}

// MarshalJSON adds the rendered statusText for the console.
func (s UploadSession) MarshalJSON() ([]byte, error) {
	type plain UploadSession
	return json.Marshal(struct {
		plain
		StatusText string `json:"statusText,omitempty"`
	}{plain(s), s.StatusText()})
}

// Clone deep-copies the session so callers never share the file descriptor.
func (s UploadSession) Clone() UploadSession {
	s.File = s.File.Clone()
	return s
}
