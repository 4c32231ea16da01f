//go:build docsgen_api
// +build docsgen_api

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mozilla-ai/mcpool/internal/api"
	"github.com/mozilla-ai/mcpool/internal/domain"
	"github.com/mozilla-ai/mcpool/internal/perms"
)

// stubPool provides the pool facing interfaces for documentation generation.
type stubPool struct{}

func (s *stubPool) Server(string) (domain.ServerConfig, bool)                         { return domain.ServerConfig{}, false }
func (s *stubPool) Servers() []domain.ServerConfig                                    { return nil }
func (s *stubPool) GetTools(context.Context, domain.ServerConfig) ([]mcp.Tool, error) { return nil, nil }
func (s *stubPool) ForceReconnect(string)                                             {}
func (s *stubPool) Status(string) (domain.HealthRecord, error)                        { return domain.HealthRecord{}, nil }
func (s *stubPool) List() []domain.HealthRecord                                       { return nil }
func (s *stubPool) Metrics() domain.Metrics                                           { return domain.Metrics{} }

// main generates the OpenAPI specification for the mcpool API.
// It assumes it is run from the repository root.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "mcpool.docsgen.api",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	outputPath := "./docs/api/openapi.yaml"

	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)

	config := huma.DefaultConfig("mcpool docs", api.APIVersion)
	config.Transformers = append(api.Transformers(), config.Transformers...)
	router := humachi.New(mux, config)

	stub := &stubPool{}
	apiPathPrefix, err := api.RegisterRoutes(router, stub, stub, stub, stub)
	if err != nil {
		logger.Error("failed to register API routes", "error", err)
		os.Exit(1)
	}

	logger.Info("Routes registered", "prefix", apiPathPrefix)

	yamlBytes, err := router.OpenAPI().YAML()
	if err != nil {
		logger.Error("failed to generate OpenAPI YAML", "error", err)
		os.Exit(1)
	}

	docsDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(docsDir, perms.RegularDir); err != nil {
		logger.Error("failed to create docs directory", "path", docsDir, "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, yamlBytes, perms.RegularFile); err != nil {
		logger.Error("failed to write OpenAPI spec", "path", outputPath, "error", err)
		os.Exit(1)
	}

	logger.Info("OpenAPI spec generated", "path", outputPath, "size", fmt.Sprintf("%d bytes", len(yamlBytes)))
}
