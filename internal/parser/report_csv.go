package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ngo-impact/impact-client/internal/models"
)

// ReportColumns are the columns the service expects in a bulk report CSV.
var ReportColumns = []string{"ngoId", "month", "peopleHelped", "eventsConducted", "fundsUtilized"}

// maxReportedErrors caps the row problems kept in a summary.
const maxReportedErrors = 20

// ReportCSVInspector takes an advisory look at a report CSV before upload.
// Its findings never block an upload; the service does the real parsing.
type ReportCSVInspector struct{}

func NewReportCSVInspector() *ReportCSVInspector {
	return &ReportCSVInspector{}
}

func (p *ReportCSVInspector) Name() string {
	return "report_csv"
}

// CanParse reports whether the file's header names at least one expected column.
func (p *ReportCSVInspector) CanParse(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return len(missingColumns(header)) < len(ReportColumns), nil
}

// Inspect summarises the file at filePath.
func (p *ReportCSVInspector) Inspect(filePath string) (*models.CSVSummary, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return p.InspectReader(file)
}

// InspectReader summarises CSV content read from r.
func (p *ReportCSVInspector) InspectReader(r io.Reader) (*models.CSVSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &models.CSVSummary{Header: []string{}, MissingColumns: ReportColumns, Errors: []string{"file is empty"}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	summary := &models.CSVSummary{Header: header, MissingColumns: missingColumns(header)}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	addError := func(line int, format string, args ...any) {
		if len(summary.Errors) < maxReportedErrors {
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				addError(pe.Line, "%v", pe.Err)
				continue
			}
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		summary.Rows++
		line, _ := reader.FieldPos(0)

		if len(record) != len(header) {
			addError(line, "expected %d fields, got %d", len(header), len(record))
			continue
		}
		checkRow(record, index, func(format string, args ...any) { addError(line, format, args...) })
	}
	return summary, nil
}

func checkRow(record []string, index map[string]int, report func(string, ...any)) {
	field := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	if v, ok := field("ngoId"); ok && v == "" {
		report("ngoId is empty")
	}
	if v, ok := field("month"); ok {
		if err := models.ValidateMonth(v); err != nil {
			report("%v", err)
		}
	}
	for _, name := range []string{"peopleHelped", "eventsConducted"} {
		if v, ok := field(name); ok {
			if n, err := strconv.Atoi(v); err != nil || n < 0 {
				report("%s must be a non-negative integer, got %q", name, v)
			}
		}
	}
	if v, ok := field("fundsUtilized"); ok {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			report("fundsUtilized must be a non-negative number, got %q", v)
		}
	}
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	var missing []string
	for _, col := range ReportColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
