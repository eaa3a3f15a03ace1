package upload

import (
	"errors"
	"testing"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate *models.CandidateFile
		reason    string
	}{
		{"no file", nil, ReasonNoFile},
		{"valid csv", models.NewCandidateFile("report.csv", 1024, ""), ""},
		{"empty csv", models.NewCandidateFile("report.csv", 0, ""), ""},
		{"exactly at limit", models.NewCandidateFile("report.csv", MaxFileSize, ""), ""},
		{"one byte over", models.NewCandidateFile("report.csv", MaxFileSize+1, ""), ReasonTooLarge},
		{"wrong extension", models.NewCandidateFile("report.xlsx", 10, ""), ReasonInvalidType},
		{"uppercase extension", models.NewCandidateFile("REPORT.CSV", 10, ""), ReasonInvalidType},
		{"csv in the middle", models.NewCandidateFile("report.csv.txt", 10, ""), ReasonInvalidType},
		{"type checked before size", models.NewCandidateFile("report.pdf", MaxFileSize*2, ""), ReasonInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.candidate)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			if assert.True(t, errors.As(err, &ve)) {
				assert.Equal(t, tt.reason, ve.Reason)
			}
		})
	}
}

func TestNewValidatorLimit(t *testing.T) {
	v := NewValidator(100)
	assert.NoError(t, v.Validate(models.NewCandidateFile("a.csv", 100, "")))
	assert.Error(t, v.Validate(models.NewCandidateFile("a.csv", 101, "")))

	// non-positive limit falls back to the default
	assert.Equal(t, MaxFileSize, NewValidator(0).MaxBytes)
}
