// Package hosting publishes generated file sets to the code-hosting platform
// (GitHub) and enables public static serving for them. Create and commit
// failures are fatal for a pipeline run; Pages enablement is best-effort
// because the serving URL is derivable without confirmation.
package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/config"
	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// defaultBranch is the branch everything is committed to and served from.
const defaultBranch = "main"

// minEntryLength mirrors the generator's entry-document threshold. The
// publisher re-checks it so an invalid file set can never reach the remote
// system, whatever produced it.
const minEntryLength = 100

// Repo identifies a remote repository.
type Repo struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
	Owner   struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranch string `json:"default_branch"`
}

// Client talks to the GitHub REST API.
type Client struct {
	apiURL     string
	token      string
	owner      string
	pagesHost  string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger

	settleDelay time.Duration
	syncDelay   time.Duration
	pagesDelay  time.Duration
}

// NewClient creates a hosting client from the service configuration.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "github",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &Client{
		apiURL:    strings.TrimRight(cfg.GitHubAPIURL, "/"),
		token:     cfg.GitHubToken,
		owner:     cfg.GitHubUsername,
		pagesHost: cfg.PagesHost,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer:      otel.Tracer("hosting-client"),
		breaker:     gobreaker.NewCircuitBreaker(settings),
		logger:      logger,
		settleDelay: cfg.RepoSettleDelay,
		syncDelay:   cfg.CommitSyncDelay,
		pagesDelay:  cfg.PagesInitDelay,
	}
}

// SetBaseURL sets the API base URL for testing purposes
func (c *Client) SetBaseURL(apiURL string) {
	c.apiURL = strings.TrimRight(apiURL, "/")
}

// CreateRepo creates a public, auto-initialized repository. Creation is not
// idempotent: a second call with the same name fails with a name collision.
// A settle delay after creation masks the platform's propagation lag.
func (c *Client) CreateRepo(ctx context.Context, name, description string) (*Repo, error) {
	ctx, span := c.tracer.Start(ctx, "hosting.create_repo")
	defer span.End()

	span.SetAttributes(attribute.String("repo", name))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.createRepoInternal(ctx, name, description)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	repo := result.(*Repo)
	c.logger.Info("repository created", zap.String("repo", name), zap.String("url", repo.HTMLURL))

	time.Sleep(c.settleDelay)
	return repo, nil
}

func (c *Client) createRepoInternal(ctx context.Context, name, description string) (*Repo, error) {
	body := map[string]interface{}{
		"name":             name,
		"description":      description,
		"private":          false,
		"auto_init":        true,
		"license_template": "mit",
	}

	var repo Repo
	if err := c.doJSON(ctx, "POST", c.apiURL+"/user/repos", body, []int{http.StatusCreated}, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetRepo resolves an existing repository by name under the configured
// account. Used on update rounds.
func (c *Client) GetRepo(ctx context.Context, name string) (*Repo, error) {
	ctx, span := c.tracer.Start(ctx, "hosting.get_repo")
	defer span.End()

	span.SetAttributes(attribute.String("repo", name))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var repo Repo
		url := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, c.owner, name)
		if err := c.doJSON(ctx, "GET", url, nil, []int{http.StatusOK}, &repo); err != nil {
			return nil, err
		}
		return &repo, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to resolve repository %s: %w", name, err)
	}

	return result.(*Repo), nil
}

// CommitFiles upserts the file set onto the default branch one file at a
// time. A per-file failure is logged and skipped; partial success is
// accepted. The returned SHA is the branch head read back after a short sync
// delay, which is authoritative regardless of which upserts landed.
func (c *Client) CommitFiles(ctx context.Context, repo *Repo, files models.FileSet, message string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "hosting.commit_files")
	defer span.End()

	span.SetAttributes(attribute.String("repo", repo.Name), attribute.Int("files", len(files)))
	logger := c.logger.With(zap.String("repo", repo.Name))

	entry, ok := files["index.html"]
	if !ok {
		return "", fmt.Errorf("index.html is required but not found in generated files")
	}
	if len(strings.TrimSpace(entry)) < minEntryLength {
		return "", fmt.Errorf("index.html appears to be invalid or too small")
	}

	logger.Info("committing files", zap.Int("count", len(files)))

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		content := files[path]
		if strings.TrimSpace(content) == "" {
			logger.Warn("skipping empty file", zap.String("path", path))
			continue
		}
		if err := c.upsertFile(ctx, repo, path, content, message); err != nil {
			logger.Warn("failed to commit file", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("committed file", zap.String("path", path))
	}

	time.Sleep(c.syncDelay)

	sha, err := c.LatestCommit(ctx, repo)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to read branch head after commit: %w", err)
	}

	logger.Info("files committed", zap.String("sha", sha))
	return sha, nil
}

// upsertFile updates the file if it exists on the branch, creates it
// otherwise.
func (c *Client) upsertFile(ctx context.Context, repo *Repo, path, content, message string) error {
	contentsURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiURL, c.owner, repo.Name, path)

	body := map[string]interface{}{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  defaultBranch,
	}

	// The existing blob SHA is required for updates and must be absent for
	// creates.
	if sha, err := c.contentSHA(ctx, contentsURL); err == nil && sha != "" {
		body["sha"] = sha
	}

	return c.doJSON(ctx, "PUT", contentsURL, body, []int{http.StatusOK, http.StatusCreated}, nil)
}

// contentSHA returns the blob SHA of path on the default branch, or "" when
// the file does not exist yet.
func (c *Client) contentSHA(ctx context.Context, contentsURL string) (string, error) {
	var existing struct {
		SHA string `json:"sha"`
	}
	err := c.doJSON(ctx, "GET", contentsURL+"?ref="+defaultBranch, nil, []int{http.StatusOK}, &existing)
	if err != nil {
		return "", err
	}
	return existing.SHA, nil
}

// LatestCommit reads the default branch head.
func (c *Client) LatestCommit(ctx context.Context, repo *Repo) (string, error) {
	ctx, span := c.tracer.Start(ctx, "hosting.latest_commit")
	defer span.End()

	var branch struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	url := fmt.Sprintf("%s/repos/%s/%s/branches/%s", c.apiURL, c.owner, repo.Name, defaultBranch)
	if err := c.doJSON(ctx, "GET", url, nil, []int{http.StatusOK}, &branch); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	return branch.Commit.SHA, nil
}

// PagesURL returns the serving URL the platform derives from account and
// repository name. Valid whether or not enablement has been confirmed.
func (c *Client) PagesURL(name string) string {
	return fmt.Sprintf("https://%s.%s/%s", c.owner, c.pagesHost, name)
}

// IsHealthy checks that the API is reachable with the configured token.
func (c *Client) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "hosting.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"/user", nil)
	if err != nil {
		span.RecordError(err)
		return false
	}
	c.setHeaders(httpReq)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))

	return healthy
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
}

// doJSON performs one API call, checks the status against okStatuses and
// decodes the response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, body interface{}, okStatuses []int, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("hosting API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("hosting API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
