// Package app builds the service graph (remote client, extractor, store,
// workflows) from configuration. Both the server and the one-shot CLI
// commands start from here.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/filings/internal/config"
	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/extractor"
	"github.com/jackzampolin/filings/internal/home"
	"github.com/jackzampolin/filings/internal/ingest"
	"github.com/jackzampolin/filings/internal/llamacloud"
	"github.com/jackzampolin/filings/internal/store"
	"github.com/jackzampolin/filings/internal/svcctx"
	"github.com/jackzampolin/filings/internal/workflow"
)

// Options are the inputs to NewServices.
type Options struct {
	Config        *config.Config
	ConfigManager *config.Manager // optional
	Home          *home.Dir
	Logger        *slog.Logger

	// Store overrides the configured backend (tests).
	Store store.Store
}

// NewServices wires every service named by the configuration. The caller
// owns the result and must Close it.
func NewServices(opts Options) (*svcctx.Services, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extCfg, err := extraction.NewConfig()
	if err != nil {
		return nil, err
	}

	client := NewLlamaCloudClient(cfg, logger)

	extractors := extractor.NewRegistry()
	extractors.SetLogger(logger)
	extractors.Register(extractor.NewLlamaExtract(client))
	extractors.Register(extractor.NewOpenAI(extractor.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey(),
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Timeout:    time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.OpenAI.MaxRetries,
	}))
	extractors.Register(extractor.NewMock())

	ext, err := extractors.Get(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	st := opts.Store
	if st == nil {
		st, err = OpenStore(cfg, opts.Home, client, logger)
		if err != nil {
			return nil, err
		}
	}

	processor, err := workflow.NewProcessor(workflow.Config{
		Extractor:  ext,
		Store:      st,
		Extraction: extCfg,
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	metadata, err := workflow.NewMetadata(extCfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	ingester, err := ingest.New(ingest.Config{
		Uploader:  client,
		Processor: processor,
		Logger:    logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	logger.Info("services ready",
		"extractor", ext.Name(),
		"store", cfg.Store.Backend,
		"mode", extCfg.Mode,
	)

	return &svcctx.Services{
		Processor:     processor,
		Metadata:      metadata,
		Store:         st,
		Extractors:    extractors,
		Ingester:      ingester,
		ConfigManager: opts.ConfigManager,
		Logger:        logger,
		Home:          opts.Home,
	}, nil
}

// NewLlamaCloudClient builds the LlamaCloud client from configuration.
func NewLlamaCloudClient(cfg *config.Config, logger *slog.Logger) *llamacloud.Client {
	lc := cfg.LlamaCloud
	return llamacloud.NewClient(llamacloud.Config{
		APIKey:            cfg.LlamaCloudAPIKey(),
		BaseURL:           lc.BaseURL,
		ProjectID:         lc.ProjectID,
		Timeout:           time.Duration(lc.TimeoutSeconds) * time.Second,
		RequestsPerSecond: lc.RateLimit,
		PollInterval:      time.Duration(lc.PollIntervalMS) * time.Millisecond,
		PollTimeout:       time.Duration(lc.PollTimeoutSeconds) * time.Second,
		Logger:            logger,
	})
}

// OpenStore opens the configured record store backend.
func OpenStore(cfg *config.Config, h *home.Dir, client *llamacloud.Client, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreAgentData:
		return store.NewAgentData(client, cfg.LlamaCloud.Deployment), nil
	case config.StoreBadger:
		path := cfg.Store.Path
		if path == "" {
			if h == nil {
				return nil, fmt.Errorf("badger store needs store.path or a home directory")
			}
			path = h.StorePath()
		}
		return store.OpenBadger(store.BadgerConfig{Path: path, Logger: logger})
	case config.StoreMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close releases resources held by the services.
func Close(s *svcctx.Services) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
