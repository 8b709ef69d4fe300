// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/halcyonworks/gamestudio/pkg/logging"
	"github.com/halcyonworks/gamestudio/services/llm"
	"github.com/halcyonworks/gamestudio/services/studio/attempt"
	"github.com/halcyonworks/gamestudio/services/studio/config"
	"github.com/halcyonworks/gamestudio/services/studio/gitops"
	"github.com/halcyonworks/gamestudio/services/studio/handlers"
	"github.com/halcyonworks/gamestudio/services/studio/observability"
	"github.com/halcyonworks/gamestudio/services/studio/plan"
	"github.com/halcyonworks/gamestudio/services/studio/review"
	"github.com/halcyonworks/gamestudio/services/studio/routes"
	"github.com/halcyonworks/gamestudio/services/studio/scheduler"
	"github.com/halcyonworks/gamestudio/services/studio/store"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("studio-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newStatusStore opens the configured status backend.
func newStatusStore(cfg config.StoreConfig, logger *slog.Logger) (store.StatusStore, error) {
	switch cfg.Backend {
	case "badger":
		return store.NewBadgerStore(store.BadgerConfig{Path: cfg.Path, Logger: logger})
	default:
		return store.NewMemoryStore(), nil
	}
}

// newLLMClient selects the generation backend the same way for the
// planner, developer, and reviewer roles.
func newLLMClient(role string) (llm.LLMClient, error) {
	backend := os.Getenv(role)
	if backend == "" {
		backend = os.Getenv("LLM_BACKEND_TYPE")
	}
	switch backend {
	case "claude", "anthropic":
		return llm.NewAnthropicClient()
	case "openai", "":
		return llm.NewOpenAIClient()
	case "ollama":
		return llm.NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", backend)
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("STUDIO_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Observability.LogLevel),
		LogDir:  cfg.Observability.LogDir,
		Service: "studio",
		JSON:    true,
	})
	defer appLogger.Close()
	logger := appLogger.Slog()
	slog.SetDefault(logger)

	if cfg.Observability.TracingEnabled {
		cleanup, err := initTracer(cfg.Observability.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	metrics := observability.InitMetrics()

	statuses, err := newStatusStore(cfg.Store, logger)
	if err != nil {
		log.Fatalf("failed to open status store: %v", err)
	}
	defer statuses.Close()

	// Each role can run on its own backend; LLM_BACKEND_TYPE is the
	// shared fallback.
	plannerClient, err := newLLMClient("PLANNER_BACKEND")
	if err != nil {
		log.Fatalf("failed to initialize planner LLM client: %v", err)
	}
	developerClient, err := newLLMClient("DEVELOPER_BACKEND")
	if err != nil {
		log.Fatalf("failed to initialize developer LLM client: %v", err)
	}
	reviewerClient, err := newLLMClient("REVIEWER_BACKEND")
	if err != nil {
		log.Fatalf("failed to initialize reviewer LLM client: %v", err)
	}

	gitClient := gitops.NewClientFromEnv(logger)
	arena, err := gitops.NewArena(cfg.Git.ArenaRoot)
	if err != nil {
		log.Fatalf("failed to create arena: %v", err)
	}

	controller := attempt.NewController(
		developerClient,
		review.NewReviewer(reviewerClient),
		gitClient,
		gitops.NewPushLocker(),
		statuses,
		logger,
	)
	workspace := scheduler.NewGitWorkspace(gitClient, arena, logger)
	sched := scheduler.New(controller, workspace, statuses, metrics, logger, cfg.Scheduler.Workers)

	deps := handlers.Deps{
		Planner:   plan.NewBuilder(plannerClient, logger),
		Scheduler: sched,
		Statuses:  statuses,
		Git:       gitClient,
		Arena:     arena,
		GitCfg:    cfg.Git,
		Metrics:   metrics,
		Logger:    logger,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("studio-service"))
	// Browser dashboards poll the status API from other origins.
	router.Use(cors.Default())
	routes.SetupRoutes(router, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Println("Starting the studio server on", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
