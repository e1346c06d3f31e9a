package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/config"
	"github.com/jackzampolin/filings/internal/home"
	"github.com/jackzampolin/filings/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "filings",
	Short: "Structured data extraction from SEC 10-K filings",
	Long: `Filings turns uploaded SEC 10-K annual reports into structured records.

Each filing is sent to a remote extraction service with a JSON Schema
describing company identity, headline financial metrics, the most
material risk factors and key developments. Results are validated and
stored in the "sec-10k-filings" collection.

API keys are read from the environment (or a .env file):
  LLAMA_CLOUD_API_KEY   LlamaCloud extraction, file and agent data APIs
  OPENAI_API_KEY        optional OpenAI extractor`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.filings/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "filings home directory (default: ~/.filings)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format and load .env before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(format)

		h, err := getHome()
		if err != nil {
			return err
		}
		return config.LoadDotEnv(".env", h.EnvPath())
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome resolves the --home directory.
func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig creates the config manager for --config and --home.
func loadConfig() (*config.Manager, *home.Dir, error) {
	h, err := getHome()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}
	return mgr, h, nil
}

// newLogger builds a text logger at --log-level.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", logLevel)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
