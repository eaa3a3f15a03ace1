package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectReader(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		rows       int
		missing    []string
		errorCount int
		errorHas   string
	}{
		{
			name:    "valid file",
			content: "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\nN1,2024-03,10,2,1500.50\nN2,2024-03,0,0,0\n",
			rows:    2,
		},
		{
			name:    "bom and blank lines",
			content: "\ufeffngoId,month,peopleHelped,eventsConducted,fundsUtilized\n\nN1,2024-03,10,2,15\n",
			rows:    1,
		},
		{
			name:    "missing columns",
			content: "ngoId,month\nN1,2024-03\n",
			rows:    1,
			missing: []string{"peopleHelped", "eventsConducted", "fundsUtilized"},
		},
		{
			name:       "bad values",
			content:    "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\n,March,ten,-1,abc\n",
			rows:       1,
			errorCount: 5,
			errorHas:   "line 2: ngoId is empty",
		},
		{
			name:       "ragged row",
			content:    "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\nN1,2024-03,10\n",
			rows:       1,
			errorCount: 1,
			errorHas:   "expected 5 fields, got 3",
		},
		{
			name:       "empty file",
			content:    "",
			missing:    ReportColumns,
			errorCount: 1,
			errorHas:   "file is empty",
		},
	}

	inspector := NewReportCSVInspector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := inspector.InspectReader(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.rows, summary.Rows)
			assert.Equal(t, tt.missing, summary.MissingColumns)
			assert.Len(t, summary.Errors, tt.errorCount)
			if tt.errorHas != "" {
				assert.Contains(t, strings.Join(summary.Errors, "\n"), tt.errorHas)
			}
		})
	}
}

func TestInspectCapsErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString("ngoId,month,peopleHelped,eventsConducted,fundsUtilized\n")
	for i := 0; i < 50; i++ {
		b.WriteString("N1,bad,1,1,1\n")
	}
	summary, err := NewReportCSVInspector().InspectReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Rows)
	assert.Len(t, summary.Errors, maxReportedErrors)
}

func TestReportCSVInspectorFiles(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(report, []byte("ngoId,month,peopleHelped,eventsConducted,fundsUtilized\nN1,2024-03,1,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("a,b,c\n1,2,3\n"), 0644))

	p := NewReportCSVInspector()
	assert.Equal(t, "report_csv", p.Name())

	ok, err := p.CanParse(report)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.CanParse(other)
	require.NoError(t, err)
	assert.False(t, ok)

	summary, err := p.Inspect(report)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rows)
	assert.Empty(t, summary.Errors)

	_, err = p.Inspect(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
