// Package server wires configuration into a ready-to-run gin engine.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/a2a"
	"github.com/BerylCAtieno/customer-persona-agent/internal/api"
	"github.com/BerylCAtieno/customer-persona-agent/internal/cluster"
	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
	"github.com/BerylCAtieno/customer-persona-agent/internal/llm"
	"github.com/BerylCAtieno/customer-persona-agent/internal/logging"
	"github.com/BerylCAtieno/customer-persona-agent/internal/pipeline"
	"github.com/BerylCAtieno/customer-persona-agent/internal/profiler"
)

// NewLLM builds the model client named by cfg.LLM.Backend.
func NewLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	return llm.New(ctx, cfg.LLM.Backend, llm.Options{
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		TopP:            cfg.LLM.TopP,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
}

// NewPipeline assembles the analysis pipeline around gen.
func NewPipeline(cfg *config.Config, gen profiler.Generator, logger *zap.Logger) *pipeline.Pipeline {
	prof := profiler.New(gen,
		profiler.WithTimeout(cfg.LLM.Timeout()),
		profiler.WithMaxK(cfg.Pipeline.MaxK),
		profiler.WithLogger(logger.Named("profiler")),
	)
	km := &cluster.KMeans{
		Seed:          cfg.Cluster.Seed,
		MaxIterations: cfg.Cluster.MaxIterations,
		Tolerance:     cfg.Cluster.Tolerance,
	}
	return pipeline.New(prof, km, prof, pipeline.Config{
		IDField:        cfg.Pipeline.IDField,
		SampleSize:     cfg.Pipeline.SampleSize,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	}, pipeline.WithLogger(logger.Named("pipeline")))
}

// NewRouter mounts every route over analyzer.
func NewRouter(cfg *config.Config, analyzer api.Analyzer, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(api.RequestID(), logging.GinMiddleware(logger.Named("http")), logging.Recovery(logger))

	api.NewHandler(analyzer, logger.Named("api"), cfg.MaxBodyBytes).Register(router)
	a2a.NewHandler(analyzer, logger.Named("a2a")).Register(router)
	return router
}

// Addr returns the listen address for cfg.
func Addr(cfg *config.Config) string {
	return fmt.Sprintf(":%s", cfg.Port)
}
