package upload

import (
	"strings"

	"github.com/ngo-impact/impact-client/internal/models"
)

// MaxFileSize is the largest CSV accepted client-side (10 MiB).
const MaxFileSize int64 = 10 * 1024 * 1024

// RequiredExtension is matched case-sensitively against the end of the file name.
const RequiredExtension = ".csv"

// Validator applies the advisory file rules in order; the first failing rule wins.
// The server enforces its own limits independently.
type Validator struct {
	MaxBytes  int64
	Extension string
}

// DefaultValidator uses the documented limits.
func DefaultValidator() Validator {
	return Validator{MaxBytes: MaxFileSize, Extension: RequiredExtension}
}

// NewValidator returns a validator with a custom size limit; non-positive means default.
func NewValidator(maxBytes int64) Validator {
	v := DefaultValidator()
	if maxBytes > 0 {
		v.MaxBytes = maxBytes
	}
	return v
}

// Validate returns nil when the candidate is accepted, or a *ValidationError.
func (v Validator) Validate(c *models.CandidateFile) error {
	if c == nil {
		return &ValidationError{Reason: ReasonNoFile}
	}
	if !strings.HasSuffix(c.Name, v.Extension) {
		return &ValidationError{Reason: ReasonInvalidType}
	}
	if c.SizeBytes > v.MaxBytes {
		return &ValidationError{Reason: ReasonTooLarge}
	}
	return nil
}

// Validate checks c against DefaultValidator.
func Validate(c *models.CandidateFile) error {
	return DefaultValidator().Validate(c)
}
