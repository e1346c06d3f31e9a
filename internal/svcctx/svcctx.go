// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/filings/internal/config"
	"github.com/jackzampolin/filings/internal/extractor"
	"github.com/jackzampolin/filings/internal/home"
	"github.com/jackzampolin/filings/internal/ingest"
	"github.com/jackzampolin/filings/internal/store"
	"github.com/jackzampolin/filings/internal/workflow"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Processor     *workflow.Processor
	Metadata      *workflow.Metadata
	Store         store.Store
	Extractors    *extractor.Registry
	Ingester      *ingest.Ingester
	ConfigManager *config.Manager
	Logger        *slog.Logger
	Home          *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ProcessorFrom extracts the file processing workflow from context.
func ProcessorFrom(ctx context.Context) *workflow.Processor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Processor
	}
	return nil
}

// MetadataFrom extracts the metadata workflow from context.
func MetadataFrom(ctx context.Context) *workflow.Metadata {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metadata
	}
	return nil
}

// StoreFrom extracts the record store from context.
func StoreFrom(ctx context.Context) store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// ExtractorsFrom extracts the extractor registry from context.
func ExtractorsFrom(ctx context.Context) *extractor.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractors
	}
	return nil
}

// IngesterFrom extracts the document ingester from context.
func IngesterFrom(ctx context.Context) *ingest.Ingester {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingester
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
