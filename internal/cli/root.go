package cli

import (
	"fmt"
	"os"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/pkg/version"
	"github.com/spf13/cobra"
)

var (
	flagLogFile string
	flagVerbose bool
	flagQuiet   bool
	flagJSON    bool

	logger         logging.Logger
	debugTransport *logging.DebugTransport
)

var rootCmd = &cobra.Command{
	Use:   "driveconnect",
	Short: "Google Drive connector sync service",
	Long: `driveconnect mirrors the folder structure of Google Drive workspaces,
manages folder selections for sync, and keeps webhook channels alive so
that remote changes reach the workflow engine.

Run "driveconnect serve" to start the HTTP service, or use the connector
and channel commands for administration.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logConfig := logging.DefaultLogConfig()
		logConfig.OutputFile = flagLogFile
		logConfig.EnableConsole = !flagQuiet
		if flagVerbose {
			logConfig.Level = logging.DEBUG
			logConfig.EnableDebug = true
		}
		if flagJSON && !flagVerbose {
			logConfig.EnableConsole = false
		}

		var err error
		logger, debugTransport, err = logging.NewDebugLoggerWithTransport(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	return nil
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	if logger == nil {
		return logging.NewNoOpLogger()
	}
	return logger
}
