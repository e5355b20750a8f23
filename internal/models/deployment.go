package models

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Attachment is an inline file shipped with a deployment request. The URL is
// expected to be a data: URL carrying base64-encoded content.
type Attachment struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

// Decode extracts the base64 payload from the attachment's data: URL.
func (a Attachment) Decode() ([]byte, error) {
	if !strings.HasPrefix(a.URL, "data:") {
		return nil, fmt.Errorf("attachment %s is not a data URL", a.Name)
	}
	idx := strings.Index(a.URL, "base64,")
	if idx < 0 {
		return nil, fmt.Errorf("attachment %s has no base64 payload", a.Name)
	}
	data, err := base64.StdEncoding.DecodeString(a.URL[idx+len("base64,"):])
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %s: %w", a.Name, err)
	}
	return data, nil
}

// DeploymentRequest is the inbound body for /deploy (round 1) and /update
// (round 2+). Round 1 creates the repository; later rounds address the same
// repository derived from (task, email).
type DeploymentRequest struct {
	Email         string       `json:"email" binding:"required,email"`
	Secret        string       `json:"secret" binding:"required"`
	Task          string       `json:"task" binding:"required"`
	Round         int          `json:"round" binding:"required,min=1"`
	Nonce         string       `json:"nonce" binding:"required"`
	Brief         string       `json:"brief" binding:"required"`
	// Checks must be present but may be empty; the gateway verifies
	// presence (nil vs empty) after binding.
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url" binding:"required"`
	Attachments   []Attachment `json:"attachments"`
}

// DeploymentResponse is the immediate acknowledgment returned before any
// pipeline work happens.
type DeploymentResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	TaskID    string `json:"task_id"`
	Timestamp string `json:"timestamp"`
}

// FileSet maps repository-relative paths to text content.
type FileSet map[string]string

// PublishedArtifact describes the deployed repository after publishing.
type PublishedArtifact struct {
	RepoName  string
	RepoURL   string
	CommitSHA string
	PagesURL  string
}

// EvaluationPayload is posted to the caller-supplied evaluation callback.
// Built once per pipeline run; not mutated afterwards.
type EvaluationPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// NewEvaluationPayload assembles the callback payload from the request and
// the published artifact.
func NewEvaluationPayload(req DeploymentRequest, artifact PublishedArtifact) EvaluationPayload {
	return EvaluationPayload{
		Email:     req.Email,
		Task:      req.Task,
		Round:     req.Round,
		Nonce:     req.Nonce,
		RepoURL:   artifact.RepoURL,
		CommitSHA: artifact.CommitSHA,
		PagesURL:  artifact.PagesURL,
	}
}
