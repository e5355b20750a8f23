// Package gateway exposes the HTTP surface: request validation, the
// immediate "processing" acknowledgment, and the health endpoints. All real
// work happens in detached pipeline runs the handlers never wait for.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pagelift/deploy-orchestrator/internal/auth"
	"github.com/pagelift/deploy-orchestrator/internal/evaluation"
	"github.com/pagelift/deploy-orchestrator/internal/models"
	"github.com/pagelift/deploy-orchestrator/internal/orchestration"
)

// DeploymentStarter launches one background pipeline run.
type DeploymentStarter interface {
	StartDeployment(req models.DeploymentRequest, update bool) *orchestration.Run
}

// HealthChecker reports best-effort reachability of a remote system.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	service       DeploymentStarter
	verifier      *auth.Verifier
	hostingHealth HealthChecker
	modelHealth   HealthChecker
	logger        *zap.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(service DeploymentStarter, verifier *auth.Verifier, hostingHealth, modelHealth HealthChecker, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		verifier:      verifier,
		hostingHealth: hostingHealth,
		modelHealth:   modelHealth,
		logger:        logger,
	}
}

// Deploy accepts a round-1 deployment request and acknowledges immediately.
func (h *Handler) Deploy(c *gin.Context) {
	req, ok := h.bindAndValidate(c)
	if !ok {
		return
	}

	if req.Round != 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Use /update for rounds 2+",
			Code:  models.ErrCodeWrongRound,
		})
		return
	}

	h.logger.Info("starting deployment", zap.String("task_id", req.Task))
	h.service.StartDeployment(req, false)

	c.JSON(http.StatusOK, models.DeploymentResponse{
		Status:    "processing",
		Message:   "Deployment started successfully. The application is being generated and deployed.",
		TaskID:    req.Task,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Update accepts a round-2+ update request for an existing artifact.
func (h *Handler) Update(c *gin.Context) {
	req, ok := h.bindAndValidate(c)
	if !ok {
		return
	}

	if req.Round < 2 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Use /deploy for round 1",
			Code:  models.ErrCodeWrongRound,
		})
		return
	}

	h.logger.Info("starting update", zap.String("task_id", req.Task), zap.Int("round", req.Round))
	h.service.StartDeployment(req, true)

	c.JSON(http.StatusOK, models.DeploymentResponse{
		Status:    "processing",
		Message:   "Update started successfully. The application is being updated.",
		TaskID:    req.Task,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// bindAndValidate performs the synchronous request checks shared by both
// endpoints: schema, shared secret, callback URL. Nothing past this point
// can reject the request.
func (h *Handler) bindAndValidate(c *gin.Context) (models.DeploymentRequest, bool) {
	var req models.DeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request data",
			Code:  models.ErrCodeInvalidRequest,
		})
		return req, false
	}

	// The checks field must be present; an empty list is valid.
	if req.Checks == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request data",
			Code:  models.ErrCodeInvalidRequest,
		})
		return req, false
	}

	if !h.verifier.Verify(req.Secret) {
		h.logger.Warn("rejected request with invalid secret", zap.String("task_id", req.Task))
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error: "Invalid secret",
			Code:  models.ErrCodeInvalidSecret,
		})
		return req, false
	}

	if !evaluation.ValidateCallbackURL(req.EvaluationURL) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid evaluation URL",
			Code:  models.ErrCodeInvalidCallback,
		})
		return req, false
	}

	return req, true
}

// Root reports the service banner.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "LLM Code Deployment API",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Health reports liveness plus best-effort reachability of the two remote
// systems. Probes run concurrently with a shared bound.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{"api": "ok"}
	status := "healthy"

	var hostingOK, modelOK bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hostingOK = h.hostingHealth.IsHealthy(gctx)
		return nil
	})
	g.Go(func() error {
		modelOK = h.modelHealth.IsHealthy(gctx)
		return nil
	})
	_ = g.Wait()

	if hostingOK {
		components["github"] = "ok"
	} else {
		components["github"] = "unreachable"
		status = "degraded"
	}
	if modelOK {
		components["openai"] = "ok"
	} else {
		components["openai"] = "unreachable"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"timestamp":  time.Now().Format(time.RFC3339),
		"components": components,
	})
}

// Status is a stub: there is no durable task-status store, so the endpoint
// only documents that limitation.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_id":   c.Param("task_id"),
		"status":    "unknown",
		"timestamp": time.Now().Format(time.RFC3339),
		"message":   "Status tracking requires a persistent store; consult the event log",
	})
}
