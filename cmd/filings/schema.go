package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/workflow"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the collection name and JSON Schema of extracted records",
	Long: `Print what the metadata workflow reports: the collection name and
the fully dereferenced JSON Schema. No network access is needed.

Examples:
  filings schema -o json
  filings schema validate record.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := extraction.NewConfig()
		if err != nil {
			return err
		}
		md, err := workflow.NewMetadata(cfg)
		if err != nil {
			return err
		}
		return api.Output(md.Describe())
	},
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <record.json>...",
	Short: "Validate JSON records against the filing schema",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := extraction.Validate(data); err != nil {
				fmt.Printf("%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Printf("%s: ok\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d records invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaValidateCmd)
	rootCmd.AddCommand(schemaCmd)
}
