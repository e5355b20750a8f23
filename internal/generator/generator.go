// Package generator turns a deployment brief into a named set of text files
// via one generative-model call. Generation never fails outward: any model or
// parsing problem degrades to a synthesized fallback file set that satisfies
// the same structural contract.
package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// minHTMLLength is the minimum acceptable entry-document size.
const minHTMLLength = 100

// minReadmeLength is the minimum acceptable documentation size.
const minReadmeLength = 50

var requiredHTMLTags = []string{"<!doctype html>", "<html", "<head", "<body"}

// Result is the outcome of a generation attempt. Fallback marks the
// synthesized path; both variants satisfy the same downstream contract.
type Result struct {
	Files    models.FileSet
	Fallback bool
	Reason   string
}

// Generator produces deployable file sets from briefs.
type Generator struct {
	client CompletionClient
	logger *zap.Logger
}

// New creates a Generator.
func New(client CompletionClient, logger *zap.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate produces the file set for one deployment round. It always returns
// a usable result; model-call failures and structurally invalid output are
// absorbed into the fallback path.
func (g *Generator) Generate(ctx context.Context, brief string, checks []string, attachments []models.Attachment, taskID string, round int) Result {
	logger := g.logger.With(zap.String("task_id", taskID), zap.Int("round", round))
	logger.Info("generating application")

	previews := g.buildPreviews(attachments)
	prompt := buildPrompt(brief, checks, previews, taskID, round)

	response, err := g.client.Complete(ctx, systemPrompt(round), prompt)
	if err != nil {
		logger.Error("model call failed, creating fallback application", zap.Error(err))
		return Result{
			Files:    fallbackFileSet(brief, checks, taskID, round),
			Fallback: true,
			Reason:   fmt.Sprintf("model call failed: %v", err),
		}
	}
	logger.Info("model response received", zap.Int("chars", len(response)))

	files := parseResponse(response)
	files = g.ensureEssentialFiles(files, taskID, round, brief, checks, logger)

	if err := validateHTML(files["index.html"]); err != nil {
		logger.Warn("generated entry document invalid, creating fallback application", zap.Error(err))
		return Result{
			Files:    fallbackFileSet(brief, checks, taskID, round),
			Fallback: true,
			Reason:   fmt.Sprintf("invalid entry document: %v", err),
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	logger.Info("generated files", zap.Strings("files", names))

	return Result{Files: files}
}

// ensureEssentialFiles backfills any missing or undersized essential entry
// with the synthesized canonical version.
func (g *Generator) ensureEssentialFiles(files models.FileSet, taskID string, round int, brief string, checks []string, logger *zap.Logger) models.FileSet {
	if _, ok := files["LICENSE"]; !ok {
		files["LICENSE"] = mitLicense()
	}

	if len(strings.TrimSpace(files["index.html"])) < minHTMLLength {
		logger.Warn("no valid index.html generated, substituting synthesized version")
		files["index.html"] = fallbackHTML(taskID, round, brief, checks)
	}

	if len(strings.TrimSpace(files["README.md"])) < minReadmeLength {
		logger.Warn("no valid README.md generated, substituting synthesized version")
		files["README.md"] = fallbackReadme(taskID, round, brief, checks)
	}

	return files
}

// validateHTML checks the entry document for minimum length and the required
// structural markers.
func validateHTML(html string) error {
	if len(strings.TrimSpace(html)) < minHTMLLength {
		return fmt.Errorf("entry document is too short or empty")
	}

	lower := strings.ToLower(html)
	var missing []string
	for _, tag := range requiredHTMLTags {
		if !strings.Contains(lower, tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("entry document missing required tags: %s", strings.Join(missing, ", "))
	}
	return nil
}
