package hosting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/config"
	"github.com/pagelift/deploy-orchestrator/internal/models"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.GitHubToken = "test-token"
	cfg.GitHubUsername = "octocat"
	cfg.RepoSettleDelay = 0
	cfg.CommitSyncDelay = 0
	cfg.PagesInitDelay = 0

	client := NewClient(cfg, zap.NewNop())
	client.SetBaseURL(server.URL)
	return client, server
}

func validFiles() models.FileSet {
	html := "<!DOCTYPE html><html><head><title>x</title></head><body>"
	for len(html) < 200 {
		html += "content "
	}
	html += "</body></html>"
	return models.FileSet{
		"index.html": html,
		"README.md":  "# Readme\n\nEnough documentation content to matter here.",
		"LICENSE":    "MIT License",
	}
}

func TestCreateRepo(t *testing.T) {
	var gotBody map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":     gotBody["name"],
			"html_url": "https://github.com/octocat/" + gotBody["name"].(string),
			"owner":    map[string]string{"login": "octocat"},
		})
	})

	client, _ := testClient(t, mux)

	repo, err := client.CreateRepo(context.Background(), "llm-app-abc", "LLM Generated App for t1")
	require.NoError(t, err)

	assert.Equal(t, "llm-app-abc", repo.Name)
	assert.Equal(t, "https://github.com/octocat/llm-app-abc", repo.HTMLURL)
	assert.Equal(t, true, gotBody["auto_init"])
	assert.Equal(t, "mit", gotBody["license_template"])
	assert.Equal(t, false, gotBody["private"])
}

func TestCreateRepo_NameCollision(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"name already exists on this account"}`))
	})

	client, _ := testClient(t, mux)

	_, err := client.CreateRepo(context.Background(), "llm-app-abc", "desc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create repository")
	assert.Contains(t, err.Error(), "already exists")
}

func TestCommitFiles_RequiresValidEntryDocument(t *testing.T) {
	client, _ := testClient(t, http.NewServeMux())
	repo := &Repo{Name: "r"}

	_, err := client.CommitFiles(context.Background(), repo, models.FileSet{"README.md": "x"}, "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.html is required")

	_, err = client.CommitFiles(context.Background(), repo, models.FileSet{"index.html": "tiny"}, "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")
}

func TestCommitFiles_UpsertSemantics(t *testing.T) {
	files := validFiles()

	var updates, creates []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/r/contents/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/repos/octocat/r/contents/"):]
		switch r.Method {
		case "GET":
			// index.html already exists remotely, everything else is new.
			if path == "index.html" {
				json.NewEncoder(w).Encode(map[string]string{"sha": "existing-blob-sha"})
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case "PUT":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "main", body["branch"])
			if _, ok := body["sha"]; ok {
				updates = append(updates, path)
			} else {
				creates = append(creates, path)
			}
			if path == "LICENSE" {
				// A per-file failure must not abort the rest.
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"content": map[string]string{"path": path}})
		}
	})
	mux.HandleFunc("/repos/octocat/r/branches/main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"commit": map[string]string{"sha": "head-sha"},
		})
	})

	client, _ := testClient(t, mux)
	repo := &Repo{Name: "r"}

	sha, err := client.CommitFiles(context.Background(), repo, files, "Update for round 2")
	require.NoError(t, err)

	assert.Equal(t, "head-sha", sha)
	assert.Equal(t, []string{"index.html"}, updates)
	// LICENSE failed but README.md was still attempted.
	assert.ElementsMatch(t, []string{"LICENSE", "README.md"}, creates)
}

func TestCommitFiles_SkipsEmptyFiles(t *testing.T) {
	files := validFiles()
	files["notes.txt"] = "   \n\t"

	var put []string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/r/contents/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/repos/octocat/r/contents/"):]
		if r.Method == "GET" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		put = append(put, path)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/repos/octocat/r/branches/main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"commit": map[string]string{"sha": "s"}})
	})

	client, _ := testClient(t, mux)

	_, err := client.CommitFiles(context.Background(), &Repo{Name: "r"}, files, "msg")
	require.NoError(t, err)
	assert.NotContains(t, put, "notes.txt")
	assert.Len(t, put, 3)
}

func TestEnablePages(t *testing.T) {
	tests := []struct {
		name        string
		handler     func(w http.ResponseWriter, r *http.Request)
		expectedURL string
	}{
		{
			name: "already_enabled",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == "GET" {
					json.NewEncoder(w).Encode(map[string]string{"html_url": "https://octocat.github.io/r/"})
					return
				}
				t.Errorf("unexpected %s after GET reported enabled", r.Method)
			},
			expectedURL: "https://octocat.github.io/r/",
		},
		{
			name: "fresh_enable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == "GET" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"html_url": "https://octocat.github.io/r/"})
			},
			expectedURL: "https://octocat.github.io/r/",
		},
		{
			name: "conflict_is_success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == "GET" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"message":"already enabled"}`))
			},
			expectedURL: "https://octocat.github.io/r",
		},
		{
			name: "hard_failure_still_returns_formula_url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedURL: "https://octocat.github.io/r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/octocat/r/pages", tt.handler)

			client, _ := testClient(t, mux)

			url := client.EnablePages(context.Background(), &Repo{Name: "r"})
			assert.Equal(t, tt.expectedURL, url)
		})
	}
}

func TestPagesURL(t *testing.T) {
	client, _ := testClient(t, http.NewServeMux())
	assert.Equal(t, "https://octocat.github.io/my-repo", client.PagesURL("my-repo"))
}

func TestLatestCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/r/branches/main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"commit": map[string]string{"sha": "abc123"}})
	})

	client, _ := testClient(t, mux)

	sha, err := client.LatestCommit(context.Background(), &Repo{Name: "r"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
}

func TestIsHealthy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	})

	client, _ := testClient(t, mux)
	assert.True(t, client.IsHealthy(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	client.SetBaseURL(down.URL)
	assert.False(t, client.IsHealthy(context.Background()))
}
