package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/auth"
	"github.com/pagelift/deploy-orchestrator/internal/config"
	"github.com/pagelift/deploy-orchestrator/internal/evaluation"
	"github.com/pagelift/deploy-orchestrator/internal/eventlog"
	"github.com/pagelift/deploy-orchestrator/internal/gateway"
	"github.com/pagelift/deploy-orchestrator/internal/generator"
	"github.com/pagelift/deploy-orchestrator/internal/hosting"
	"github.com/pagelift/deploy-orchestrator/internal/metrics"
	"github.com/pagelift/deploy-orchestrator/internal/orchestration"
)

func main() {
	// Initialize OpenTelemetry
	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := eventlog.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize event log: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	if err != nil {
		logger.Fatal("failed to initialize pipeline metrics", zap.Error(err))
	}

	// Remote clients
	modelClient := generator.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	hostingClient := hosting.NewClient(cfg, logger)
	evaluationClient := evaluation.NewClient(cfg, logger)

	// Pipeline wiring
	gen := generator.New(modelClient, logger)
	service := orchestration.NewService(cfg, gen, hostingClient, evaluationClient, pipelineMetrics, logger)
	verifier := auth.NewVerifier(cfg.AllowedSecrets)
	handler := gateway.NewHandler(service, verifier, hostingClient, modelClient, logger)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLoggingMiddleware(logger))

	router.GET("/", handler.Root)
	router.GET("/health", handler.Health)
	router.GET("/status/:task_id", handler.Status)
	router.POST("/deploy", handler.Deploy)
	router.POST("/update", handler.Update)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting deployment API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Shutdown drains open connections only; detached pipeline runs are
	// fire-and-forget and end with the process.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// requestLoggingMiddleware logs every request with a generated request ID.
func requestLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("request", fields...)
	}
}
