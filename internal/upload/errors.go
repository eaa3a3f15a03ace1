package upload

import "errors"

// Rejection reasons reported by the validator.
const (
	ReasonNoFile      = "no file selected"
	ReasonInvalidType = "invalid file type"
	ReasonTooLarge    = "file too large"
)

// Guard rejections returned by controller intents. They never change state.
var (
	ErrNoFileSelected   = errors.New("no file selected")
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrSelectionLocked  = errors.New("cannot change file while an upload is active")
	ErrSessionFinished  = errors.New("session finished; reset or select a new file")
	ErrNothingToRetry   = errors.New("nothing to retry")
)

// ValidationError rejects a candidate file before anything is sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ProcessingError means the server ran the job and reported FAILED.
type ProcessingError struct {
	JobID string
}

func (e *ProcessingError) Error() string {
	return "processing failed"
}

// StatusCheckError means the job could no longer be observed.
// Err is the underlying transport failure.
type StatusCheckError struct {
	JobID string
	Err   error
}

func (e *StatusCheckError) Error() string {
	return "status check failed"
}

func (e *StatusCheckError) Unwrap() error {
	return e.Err
}

// describe renders an error for the session's errorMessage field.
func describe(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}
