// Package cli provides the command-line interface for fieldlog.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/fieldlog/internal/client"
	"github.com/raphaelgruber/fieldlog/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	repID     string

	// Global config and API client
	cfg       config.Config
	apiClient *client.Client
	logger    *slog.Logger
	closeLog  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fieldlog",
	Short: "Log HCP interactions from the terminal",
	Long: `Fieldlog captures interactions between field reps and healthcare
professionals (HCPs), either as a structured form or by describing the
visit in plain language and letting the AI assistant extract the details.

Run 'fieldlog ui' for the interactive capture screen.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if repID != "" {
			cfg.RepID = repID
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// stderr belongs to the screen while the UI runs
		if cmd.Name() == "ui" {
			logger, closeLog = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
			closeLog = func() error { return nil }
		}

		apiClient = client.New(cfg.ServerURL)
		logger.Debug("using server", "url", apiClient.BaseURL(), "rep_id", cfg.RepID)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default from FIELDLOG_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&repID, "rep", "", "representative ID (default from FIELDLOG_REP_ID)")

	// Add subcommands
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(hcpCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(statsCmd)
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
