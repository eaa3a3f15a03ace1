package main

import (
	"fmt"
	"io"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/spf13/cobra"
)

var monthFlag string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the aggregated statistics for a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := models.ValidateMonth(monthFlag); err != nil {
			return err
		}
		svc, err := newClient()
		if err != nil {
			return err
		}
		summary, err := svc.Dashboard(cmd.Context(), monthFlag)
		if err != nil {
			return err
		}
		printDashboard(cmd.OutOrStdout(), monthFlag, summary)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&monthFlag, "month", "", "Month to summarise (YYYY-MM)")
	_ = dashboardCmd.MarkFlagRequired("month")
}

func printDashboard(w io.Writer, month string, d models.DashboardSummary) {
	fmt.Fprintf(w, "Impact summary for %s\n", month)
	fmt.Fprintf(w, "  Total NGOs:        %d\n", d.TotalNGOs)
	fmt.Fprintf(w, "  People Helped:     %d\n", d.PeopleHelped)
	fmt.Fprintf(w, "  Events Conducted:  %d\n", d.EventsConducted)
	fmt.Fprintf(w, "  Funds Utilized:    %s\n", d.FundsDisplay())
}
