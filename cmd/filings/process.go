package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/app"
	"github.com/jackzampolin/filings/internal/svcctx"
	"github.com/jackzampolin/filings/internal/workflow"
)

var processConcurrency int

var processCmd = &cobra.Command{
	Use:   "process <file-id>...",
	Short: "Extract and store uploaded filings without a server",
	Long: `Run the file processing workflow for one or more remote file ids.

Each file is extracted once, validated against the filing schema and
stored in the "sec-10k-filings" collection. Files are independent: one
failure does not stop the others. The exit status is non-zero if any
file failed.

Examples:
  filings process file-123
  filings process file-1 file-2 file-3 --concurrency 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := localServices()
		if err != nil {
			return err
		}
		defer app.Close(svcs)

		concurrency := processConcurrency
		if concurrency <= 0 {
			concurrency = svcs.ConfigManager.Get().Workflow.BatchConcurrency
		}

		events := make([]workflow.FileEvent, len(args))
		for i, id := range args {
			events[i] = workflow.FileEvent{FileID: id}
		}
		results := svcs.Processor.ProcessBatch(cmd.Context(), events, concurrency)

		if err := api.Output(results); err != nil {
			return err
		}
		if failed := workflow.Failed(results); failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	},
}

// localServices wires the services in-process for one-shot commands.
// Logs go to stderr so stdout carries only command output.
func localServices() (*svcctx.Services, error) {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	mgr, h, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewServices(app.Options{
		Config:        mgr.Get(),
		ConfigManager: mgr,
		Home:          h,
		Logger:        logger,
	})
}

func init() {
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 0, "Max files in flight (default from config)")
	rootCmd.AddCommand(processCmd)
}
