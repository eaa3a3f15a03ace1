package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthLayout is the YYYY-MM form used by reports and the dashboard query.
const MonthLayout = "2006-01"

// Report is a single monthly impact report as submitted by an NGO.
// All fields travel as strings.
type Report struct {
	NGOID           string `json:"ngoId" msgpack:"ngoId"`
	Month           string `json:"month" msgpack:"month"`
	PeopleHelped    string `json:"peopleHelped" msgpack:"peopleHelped"`
	EventsConducted string `json:"eventsConducted" msgpack:"eventsConducted"`
	FundsUtilized   string `json:"fundsUtilized" msgpack:"fundsUtilized"`
}

// Validate requires every field and a YYYY-MM month.
func (r Report) Validate() error {
	fields := []struct{ name, value string }{
		{"ngoId", r.NGOID},
		{"month", r.Month},
		{"peopleHelped", r.PeopleHelped},
		{"eventsConducted", r.EventsConducted},
		{"fundsUtilized", r.FundsUtilized},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return ValidateMonth(r.Month)
}

// ValidateMonth checks that month is in YYYY-MM form.
func ValidateMonth(month string) error {
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return fmt.Errorf("month must be YYYY-MM, got %q", month)
	}
	return nil
}

// DashboardSummary is the monthly aggregate returned by GET /dashboard.
// Services may send the figures as numbers or numeric strings.
type DashboardSummary struct {
	TotalNGOs       Count  `json:"totalNGOs" msgpack:"totalNGOs"`
	PeopleHelped    Count  `json:"peopleHelped" msgpack:"peopleHelped"`
	EventsConducted Count  `json:"eventsConducted" msgpack:"eventsConducted"`
	FundsUtilized   Amount `json:"fundsUtilized" msgpack:"fundsUtilized"`
}

// FundsDisplay renders utilised funds in rupees, or "0" when nothing was reported.
func (d DashboardSummary) FundsDisplay() string {
	if d.FundsUtilized == 0 {
		return "0"
	}
	return "Rs." + strconv.FormatFloat(float64(d.FundsUtilized), 'f', -1, 64)
}

// CSVSummary is the result of a local, advisory look at a report CSV.
type CSVSummary struct {
	Header         []string `json:"header"`
	Rows           int      `json:"rows"`
	MissingColumns []string `json:"missingColumns,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}
