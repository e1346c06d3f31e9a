package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/app"
	"github.com/jackzampolin/filings/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the filings server",
	Long: `Start the filings HTTP server.

The server exposes the processing and metadata workflows plus read access
to stored records. Config file changes are picked up while running; a
different extractor or store backend needs a restart.

Endpoints:
  GET    /health                   Basic server health check
  GET    /ready                    Readiness check (record store reachable)
  GET    /api/metadata             Collection name and JSON Schema
  POST   /api/files/{id}/process   Extract and store one filing
  POST   /api/files/process        Extract and store several filings
  POST   /api/files/upload         Upload a filing PDF
  GET    /api/records              List stored records
  GET    /api/records/{id}         Get a record
  DELETE /api/records/{id}         Delete a record

Examples:
  filings serve                    # Start on default port 8080
  filings serve --port 3000        # Start on custom port
  filings serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stdout)
		if err != nil {
			return err
		}

		mgr, h, err := loadConfig()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		cfg := mgr.Get()

		svcs, err := app.NewServices(app.Options{
			Config:        cfg,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:             serveHost,
			Port:             servePort,
			Services:         svcs,
			ConfigManager:    mgr,
			BatchConcurrency: cfg.Workflow.BatchConcurrency,
			Logger:           logger,
		})
		if err != nil {
			app.Close(svcs)
			return err
		}

		if mgr.ConfigFile() != "" {
			logger.Info("watching config", "file", mgr.ConfigFile())
			mgr.SetLogger(logger)
			mgr.WatchConfig()
		}

		// Start server (blocks until shutdown; closes the store)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
