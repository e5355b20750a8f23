package orchestration

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// saveAttachments decodes inline data-URL attachments to the attachments
// directory and returns the written paths. Attachments that cannot be
// decoded are logged and skipped; a save failure never stops the pipeline.
func (s *Service) saveAttachments(attachments []models.Attachment, logger *zap.Logger) []string {
	if len(attachments) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.attachmentsDir, 0o755); err != nil {
		logger.Error("failed to create attachments directory", zap.Error(err))
		return nil
	}

	var saved []string
	for _, att := range attachments {
		data, err := att.Decode()
		if err != nil {
			logger.Warn("skipping attachment", zap.String("attachment", att.Name), zap.Error(err))
			continue
		}

		path := filepath.Join(s.attachmentsDir, filepath.Base(att.Name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Error("failed to save attachment", zap.String("attachment", att.Name), zap.Error(err))
			continue
		}
		saved = append(saved, path)
		logger.Info("saved attachment", zap.String("path", path))
	}
	return saved
}

// cleanupAttachments removes the saved attachment files. Runs on every
// pipeline exit path; removal failures are logged, never propagated.
func (s *Service) cleanupAttachments(paths []string, logger *zap.Logger) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed to clean up attachment", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		logger.Info("cleaned up attachment", zap.String("path", path))
	}
}
