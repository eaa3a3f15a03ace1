// Command impact submits NGO impact reports to the impact service, tracks bulk
// CSV uploads and serves a local web console for the same operations.
package main

import (
	"os"

	"github.com/ngo-impact/impact-client/internal/client"
	"github.com/ngo-impact/impact-client/internal/config"
	"github.com/ngo-impact/impact-client/internal/logging"
	"github.com/spf13/cobra"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// CLI flags shared by every command
var (
	configFlag   string
	logLevelFlag string
	apiBaseFlag  string
)

// cfg is loaded once before any subcommand runs.
var cfg *config.AppConfig

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "impact",
	Short: "NGO impact report client",
	Long: `impact talks to the NGO impact service.

Bulk CSV files are validated locally, uploaded, and the resulting job is
tracked until the service reports it completed or failed.

Examples:
  impact upload reports-2024-03.csv
  impact report --ngo-id NGO1 --month 2024-03 --people-helped 120 --events-conducted 4 --funds-utilized 1500
  impact dashboard --month 2024-03
  impact inspect reports-2024-03.csv
  impact serve --port 8089`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&apiBaseFlag, "api-base", "", "Base URL of the impact service")

	rootCmd.AddCommand(uploadCmd, reportCmd, dashboardCmd, inspectCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return err
	}
	if apiBaseFlag != "" {
		loaded.Service.BaseURL = apiBaseFlag
	}
	if logLevelFlag != "" {
		loaded.Logging.Level = logLevelFlag
	}
	cfg = loaded

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// newClient builds the service client from the loaded configuration.
func newClient() (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:        cfg.Service.BaseURL,
		Encoding:       client.Encoding(cfg.Service.Encoding),
		RequestTimeout: cfg.RequestTimeout(),
		UploadTimeout:  cfg.UploadTimeout(),
	})
}
