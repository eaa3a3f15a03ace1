package main

import (
	"fmt"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/spf13/cobra"
)

var reportFlags models.Report

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Submit a single monthly impact report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newClient()
		if err != nil {
			return err
		}
		if err := svc.SubmitReport(cmd.Context(), reportFlags); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report for %s (%s) submitted\n", reportFlags.NGOID, reportFlags.Month)
		return nil
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.NGOID, "ngo-id", "", "NGO identifier")
	f.StringVar(&reportFlags.Month, "month", "", "Reporting month (YYYY-MM)")
	f.StringVar(&reportFlags.PeopleHelped, "people-helped", "", "Number of people helped")
	f.StringVar(&reportFlags.EventsConducted, "events-conducted", "", "Number of events conducted")
	f.StringVar(&reportFlags.FundsUtilized, "funds-utilized", "", "Funds utilized")
	for _, name := range []string{"ngo-id", "month", "people-helped", "events-conducted", "funds-utilized"} {
		_ = reportCmd.MarkFlagRequired(name)
	}
}
