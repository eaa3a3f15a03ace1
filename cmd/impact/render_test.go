package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestProgressLine(t *testing.T) {
	tests := []struct {
		name    string
		session models.UploadSession
		want    string
	}{
		{
			name:    "uploading",
			session: models.UploadSession{Phase: models.PhaseUploading},
			want:    "[" + strings.Repeat(".", barWidth) + "]   0% uploading",
		},
		{
			name: "tracking",
			session: models.UploadSession{
				Phase: models.PhaseTracking, JobState: models.JobStateProcessing,
				ProcessedCount: 50, TotalCount: 100, Progress: 50,
			},
			want: "[" + strings.Repeat("#", 15) + strings.Repeat(".", 15) + "]  50% tracking 50/100 (PROCESSING)",
		},
		{
			name: "completed",
			session: models.UploadSession{
				Phase: models.PhaseCompleted, JobState: models.JobStateCompleted,
				ProcessedCount: 3, TotalCount: 3, Progress: 100,
			},
			want: "[" + strings.Repeat("#", barWidth) + "] 100% completed 3/3 (COMPLETED)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, progressLine(tt.session))
		})
	}
}

func TestProgressWriterSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	pw := &progressWriter{w: &buf}

	s := models.UploadSession{Phase: models.PhaseUploading}
	pw.update(s)
	pw.update(s)
	pw.finish()

	assert.Equal(t, 1, strings.Count(buf.String(), "\r"))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestPrintDashboard(t *testing.T) {
	var buf bytes.Buffer
	printDashboard(&buf, "2024-03", models.DashboardSummary{TotalNGOs: 2, PeopleHelped: 150, EventsConducted: 5, FundsUtilized: 2000.5})
	out := buf.String()
	assert.Contains(t, out, "Impact summary for 2024-03")
	assert.Contains(t, out, "Total NGOs:        2")
	assert.Contains(t, out, "Funds Utilized:    Rs.2000.5")

	buf.Reset()
	printDashboard(&buf, "2024-04", models.DashboardSummary{})
	assert.Contains(t, buf.String(), "Funds Utilized:    0")
}

func TestPrintInspection(t *testing.T) {
	var buf bytes.Buffer
	printInspection(&buf, "r.csv", &models.CSVSummary{
		Header:         []string{"ngoId", "month"},
		Rows:           1,
		MissingColumns: []string{"peopleHelped"},
	})
	out := buf.String()
	assert.Contains(t, out, "1 data rows")
	assert.Contains(t, out, "missing: peopleHelped")
	assert.NotContains(t, out, "looks good")
}
