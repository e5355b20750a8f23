package hosting

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EnablePages configures public static serving for the repository from the
// default branch root. The enablement endpoint is not idempotent at the HTTP
// level: 409 and 422 mean "already satisfied" and count as success. The
// serving URL is derivable from account and repository name alone, so it is
// returned even when every control-plane call fails.
func (c *Client) EnablePages(ctx context.Context, repo *Repo) string {
	ctx, span := c.tracer.Start(ctx, "hosting.enable_pages")
	defer span.End()

	span.SetAttributes(attribute.String("repo", repo.Name))
	logger := c.logger.With(zap.String("repo", repo.Name))
	formulaURL := c.PagesURL(repo.Name)

	pagesURL := c.apiURL + "/repos/" + c.owner + "/" + repo.Name + "/pages"

	// Already enabled: the GET returns the live configuration.
	var existing struct {
		HTMLURL string `json:"html_url"`
	}
	if err := c.doJSON(ctx, "GET", pagesURL, nil, []int{http.StatusOK}, &existing); err == nil {
		logger.Info("pages already enabled")
		if existing.HTMLURL != "" {
			return existing.HTMLURL
		}
		return formulaURL
	}

	body := map[string]interface{}{
		"source": map[string]string{
			"branch": defaultBranch,
			"path":   "/",
		},
	}

	var created struct {
		HTMLURL string `json:"html_url"`
	}
	err := c.doJSON(ctx, "POST", pagesURL, body,
		[]int{http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity}, &created)
	switch {
	case err != nil:
		logger.Warn("pages enablement call failed, using derived url", zap.Error(err))
	case created.HTMLURL != "":
		formulaURL = created.HTMLURL
		logger.Info("pages enabled", zap.String("url", formulaURL))
	default:
		// 409/422 bodies carry no html_url; the platform already has the
		// site configured.
		logger.Info("pages enablement reported conflict, treating as enabled")
	}

	time.Sleep(c.pagesDelay)

	logger.Info("pages url resolved", zap.String("url", formulaURL))
	return formulaURL
}
