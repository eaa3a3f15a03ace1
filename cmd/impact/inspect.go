package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/parser"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.csv>",
	Short: "Check a report CSV locally before uploading it",
	Long: `inspect reads a report CSV and lists its columns, data rows, missing
expected columns and rows that look wrong. The service does its own
validation; this is only a preview.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := parser.NewReportCSVInspector().Inspect(args[0])
		if err != nil {
			return err
		}
		printInspection(cmd.OutOrStdout(), args[0], summary)
		return nil
	},
}

func printInspection(w io.Writer, path string, s *models.CSVSummary) {
	fmt.Fprintf(w, "%s: %d data rows\n", path, s.Rows)
	fmt.Fprintf(w, "  columns: %s\n", strings.Join(s.Header, ", "))
	if len(s.MissingColumns) > 0 {
		fmt.Fprintf(w, "  missing: %s\n", strings.Join(s.MissingColumns, ", "))
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if len(s.MissingColumns) == 0 && len(s.Errors) == 0 {
		fmt.Fprintln(w, "  looks good")
	}
}
