package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/app"
	"github.com/jackzampolin/filings/internal/ingest"
)

var uploadProcess bool

var uploadCmd = &cobra.Command{
	Use:   "upload <path.pdf>...",
	Short: "Upload filing PDFs to LlamaCloud",
	Long: `Upload one or more 10-K PDFs to the LlamaCloud file store and print
their file ids. Every file is checked locally before anything is sent.

Examples:
  filings upload acme-10k.pdf
  filings upload acme-10k.pdf --process   # upload, extract and store`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := localServices()
		if err != nil {
			return err
		}
		defer app.Close(svcs)

		results, err := svcs.Ingester.Ingest(cmd.Context(), ingest.Request{
			Paths:   args,
			Process: uploadProcess,
		})
		if len(results) > 0 {
			if outErr := api.Output(results); outErr != nil {
				return outErr
			}
		}
		return err
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadProcess, "process", false, "Run the processing workflow after upload")
	rootCmd.AddCommand(uploadCmd)
}
