// Package evaluation delivers deployment results to the caller-supplied
// callback URL. Delivery is at-least-once effort with a bounded retry
// schedule; the component communicates only through its boolean outcome and
// the event log.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/config"
	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// Client posts evaluation payloads with retry.
type Client struct {
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
	maxRetries int
	retryDelay func(attempt int) time.Duration

	// sleep is swapped out by tests to observe the retry schedule.
	sleep func(d time.Duration)
}

// NewClient creates an evaluation reporter from the service configuration.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.EvaluationTimeout,
		},
		tracer:     otel.Tracer("evaluation-client"),
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		sleep:      time.Sleep,
	}
}

// Submit delivers the payload to callbackURL. It attempts up to the
// configured maximum, sleeping the fixed schedule between attempts, and
// reports the final outcome as a boolean. It never returns an error: a
// failed delivery is a logged fact, not a pipeline failure.
func (c *Client) Submit(ctx context.Context, callbackURL string, payload models.EvaluationPayload) bool {
	ctx, span := c.tracer.Start(ctx, "evaluation.submit")
	defer span.End()

	span.SetAttributes(
		attribute.String("task_id", payload.Task),
		attribute.Int("round", payload.Round),
	)
	logger := c.logger.With(zap.String("task_id", payload.Task))
	logger.Info("submitting evaluation", zap.String("url", callbackURL))

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		logger.Info("evaluation attempt",
			zap.Int("attempt", attempt+1),
			zap.Int("max", c.maxRetries))

		if err := c.post(ctx, callbackURL, payload); err != nil {
			logger.Warn("evaluation submission failed", zap.Int("attempt", attempt+1), zap.Error(err))
		} else {
			logger.Info("evaluation submitted successfully")
			span.SetAttributes(attribute.Bool("delivered", true))
			return true
		}

		if attempt < c.maxRetries-1 {
			delay := c.retryDelay(attempt)
			logger.Info("retrying evaluation submission", zap.Duration("delay", delay))
			c.sleep(delay)
		}
	}

	logger.Error("all evaluation submission attempts failed")
	span.SetAttributes(attribute.Bool("delivered", false))
	return false
}

func (c *Client) post(ctx context.Context, callbackURL string, payload models.EvaluationPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "deploy-orchestrator/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// ValidateCallbackURL is the pure syntactic check performed before a pipeline
// starts: non-empty and an http or https scheme.
func ValidateCallbackURL(callbackURL string) bool {
	if callbackURL == "" {
		return false
	}
	return strings.HasPrefix(callbackURL, "http://") || strings.HasPrefix(callbackURL, "https://")
}
