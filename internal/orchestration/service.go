// Package orchestration owns one deployment pipeline run end to end: it
// sequences generation, publishing and reporting, decides create vs update
// semantics, and guarantees attachment cleanup on every exit path. Runs are
// detached from the inbound HTTP request; the handler discards the Run
// handle while tests await it.
package orchestration

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/config"
	"github.com/pagelift/deploy-orchestrator/internal/generator"
	"github.com/pagelift/deploy-orchestrator/internal/hosting"
	"github.com/pagelift/deploy-orchestrator/internal/metrics"
	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// Phase names a pipeline state. Phases advance strictly sequentially within
// one run.
type Phase string

const (
	PhaseAccepted   Phase = "accepted"
	PhaseGenerating Phase = "generating"
	PhasePublishing Phase = "publishing"
	PhaseReporting  Phase = "reporting"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// ArtifactGenerator produces the file set for a deployment round. It never
// fails; degraded output is marked via Result.Fallback.
type ArtifactGenerator interface {
	Generate(ctx context.Context, brief string, checks []string, attachments []models.Attachment, taskID string, round int) generator.Result
}

// Publisher is the code-hosting dependency of the pipeline.
type Publisher interface {
	CreateRepo(ctx context.Context, name, description string) (*hosting.Repo, error)
	GetRepo(ctx context.Context, name string) (*hosting.Repo, error)
	CommitFiles(ctx context.Context, repo *hosting.Repo, files models.FileSet, message string) (string, error)
	EnablePages(ctx context.Context, repo *hosting.Repo) string
	LatestCommit(ctx context.Context, repo *hosting.Repo) (string, error)
	PagesURL(name string) string
}

// Reporter delivers the evaluation payload; the boolean is the whole contract.
type Reporter interface {
	Submit(ctx context.Context, callbackURL string, payload models.EvaluationPayload) bool
}

// Run is the handle for one detached pipeline execution. The HTTP layer
// discards it; tests wait on Done.
type Run struct {
	TaskID string
	Round  int

	done     chan struct{}
	err      error
	phase    Phase
	artifact *models.PublishedArtifact
	reported bool
}

// Done is closed when the run reaches a terminal phase.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or the context expires.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the fatal error of a failed run, nil otherwise. Only valid
// after Done.
func (r *Run) Err() error { return r.err }

// Phase returns the last phase the run reached. Only valid after Done.
func (r *Run) Phase() Phase { return r.phase }

// Artifact returns the published artifact, nil if publishing never
// completed. Only valid after Done.
func (r *Run) Artifact() *models.PublishedArtifact { return r.artifact }

// Reported tells whether the evaluation callback was delivered. Only valid
// after Done.
func (r *Run) Reported() bool { return r.reported }

// Service orchestrates deployment pipeline runs.
type Service struct {
	generator ArtifactGenerator
	publisher Publisher
	reporter  Reporter

	logger         *zap.Logger
	metrics        *metrics.PipelineMetrics
	tracer         trace.Tracer
	attachmentsDir string
}

// NewService creates the orchestrator.
func NewService(cfg *config.Config, gen ArtifactGenerator, pub Publisher, rep Reporter, pm *metrics.PipelineMetrics, logger *zap.Logger) *Service {
	return &Service{
		generator:      gen,
		publisher:      pub,
		reporter:       rep,
		logger:         logger,
		metrics:        pm,
		tracer:         otel.Tracer("deployment-orchestrator"),
		attachmentsDir: cfg.AttachmentsDir,
	}
}

// StartDeployment spawns the detached background execution for one request
// and returns immediately. update selects round-2+ semantics against the
// repository derived from (task, email).
//
// Concurrent round-1 and round-2 requests for the same derived identity are
// not serialized; the remote system arbitrates that race.
func (s *Service) StartDeployment(req models.DeploymentRequest, update bool) *Run {
	run := &Run{
		TaskID: req.Task,
		Round:  req.Round,
		done:   make(chan struct{}),
		phase:  PhaseAccepted,
	}

	go func() {
		defer close(run.done)

		// The inbound request has already been answered; the run gets its
		// own lifetime, bounded only by the remote clients' own timeouts.
		ctx, span := s.tracer.Start(context.Background(), "pipeline.run")
		defer span.End()
		span.SetAttributes(
			attribute.String("task_id", req.Task),
			attribute.Int("round", req.Round),
			attribute.Bool("update", update),
		)

		start := time.Now()
		s.metrics.RecordRunStarted(ctx, req.Task, req.Round)

		if err := s.execute(ctx, req, update, run); err != nil {
			span.RecordError(err)
			run.err = err
			run.phase = PhaseFailed
			s.metrics.RecordRunFailed(ctx, req.Task, req.Round, time.Since(start))
			return
		}
		run.phase = PhaseDone
		s.metrics.RecordRunCompleted(ctx, req.Task, req.Round, time.Since(start))
	}()

	return run
}

// execute walks the run through Generating, Publishing and Reporting.
// Attachment temp files are released on every exit path.
func (s *Service) execute(ctx context.Context, req models.DeploymentRequest, update bool, run *Run) error {
	logger := s.logger.With(zap.String("task_id", req.Task), zap.Int("round", req.Round))

	saved := s.saveAttachments(req.Attachments, logger)
	defer s.cleanupAttachments(saved, logger)

	// Generating. The generator absorbs its own failures; a fallback set
	// proceeds into publishing exactly like a generated one.
	run.phase = PhaseGenerating
	result := s.generator.Generate(ctx, req.Brief, req.Checks, req.Attachments, req.Task, req.Round)
	if result.Fallback {
		logger.Warn("generation degraded to fallback file set", zap.String("reason", result.Reason))
	}

	// Publishing.
	run.phase = PhasePublishing
	repoName := DeriveRepoName(req.Task, req.Email)

	var artifact models.PublishedArtifact
	if update {
		logger.Info("updating existing repository", zap.String("repo", repoName))

		repo, err := s.publisher.GetRepo(ctx, repoName)
		if err != nil {
			return fmt.Errorf("publishing failed: %w", err)
		}
		sha, err := s.publisher.CommitFiles(ctx, repo, result.Files, fmt.Sprintf("Update for round %d", req.Round))
		if err != nil {
			return fmt.Errorf("publishing failed: %w", err)
		}
		artifact = models.PublishedArtifact{
			RepoName:  repo.Name,
			RepoURL:   repo.HTMLURL,
			CommitSHA: sha,
			PagesURL:  s.publisher.PagesURL(repo.Name),
		}
	} else {
		logger.Info("creating repository", zap.String("repo", repoName))

		repo, err := s.publisher.CreateRepo(ctx, repoName, "LLM Generated App for "+req.Task)
		if err != nil {
			return fmt.Errorf("publishing failed: %w", err)
		}
		sha, err := s.publisher.CommitFiles(ctx, repo, result.Files, "Initial deployment")
		if err != nil {
			return fmt.Errorf("publishing failed: %w", err)
		}
		artifact = models.PublishedArtifact{
			RepoName:  repo.Name,
			RepoURL:   repo.HTMLURL,
			CommitSHA: sha,
			PagesURL:  s.publisher.EnablePages(ctx, repo),
		}
	}

	if artifact.CommitSHA == "" {
		repo := &hosting.Repo{Name: artifact.RepoName}
		sha, err := s.publisher.LatestCommit(ctx, repo)
		if err != nil {
			logger.Warn("failed to resolve latest revision", zap.Error(err))
		} else {
			artifact.CommitSHA = sha
		}
	}
	run.artifact = &artifact

	// Reporting. A lost callback is logged, not escalated; the deployment
	// itself has already happened.
	run.phase = PhaseReporting
	payload := models.NewEvaluationPayload(req, artifact)
	run.reported = s.reporter.Submit(ctx, req.EvaluationURL, payload)
	s.metrics.RecordEvaluationOutcome(ctx, req.Task, run.reported)
	if !run.reported {
		logger.Warn("evaluation submission failed, but deployment completed")
	}

	logger.Info("deployment process completed",
		zap.String("repo_url", artifact.RepoURL),
		zap.String("pages_url", artifact.PagesURL),
		zap.String("commit_sha", artifact.CommitSHA))
	return nil
}
