package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelhq/driveconnect/internal/logging"
	transport "github.com/kestrelhq/driveconnect/internal/transport/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the connector HTTP service",
	Long: `Start the HTTP service that receives Google Drive webhook
notifications and exposes the connector administration API.

Examples:
  # Start with settings from the environment / .env
  driveconnect serve

  # Start on a different port
  PORT=9000 driveconnect serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	log := GetLogger()
	handler := transport.NewHandler(rt.reconciler, rt.webhooks, log)
	app := transport.NewApp(handler, log)

	// Graceful shutdown on SIGINT/SIGTERM
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Info("Shutting down")
		_ = app.Shutdown()
	}()

	log.Info("Starting driveconnect",
		logging.F("port", rt.cfg.ServerPort),
		logging.F("publicBaseUrl", rt.cfg.PublicBaseURL),
	)
	return app.Listen(":" + rt.cfg.ServerPort)
}
