// Package cdn uploads source text to a GitHub repository and returns a
// jsDelivr URL for it. The pipeline does not call it: cmd/mindmapd only
// builds an Uploader to check that credentials are configured. The GitHub
// Contents API is a handful of plain REST calls with no
// request/response shape worth a dedicated client library in this corpus,
// so it is built directly on net/http rather than adding an SDK dependency.
package cdn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultRepo = "mindmapforge-cdn"

// Config configures the GitHub-backed CDN uploader.
type Config struct {
	Token string // GitHub personal access token
	Owner string // repository owner/org
	Repo  string // defaults to "mindmapforge-cdn"
}

// Uploader publishes text content to a GitHub repository's contents API.
type Uploader struct {
	token  string
	owner  string
	repo   string
	client *http.Client
}

// New builds an Uploader. It returns ok=false if owner or token are unset,
// matching the upstream behavior of silently disabling CDN uploads rather
// than failing pipeline runs that don't need them.
func New(cfg Config) (*Uploader, bool) {
	if cfg.Owner == "" || cfg.Token == "" {
		return nil, false
	}
	repo := cfg.Repo
	if repo == "" {
		repo = defaultRepo
	}
	return &Uploader{
		token:  cfg.Token,
		owner:  cfg.Owner,
		repo:   repo,
		client: &http.Client{Timeout: 30 * time.Second},
	}, true
}

type contentsResponse struct {
	SHA string `json:"sha"`
}

type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// UploadText creates or updates filename under texts/ in the configured
// repository and returns its jsdelivr CDN URL.
func (u *Uploader) UploadText(ctx context.Context, content, filename string) (string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/texts/%s", u.owner, u.repo, filename)

	sha, err := u.existingSHA(ctx, url)
	if err != nil {
		slog.Warn("cdn: failed to check for existing file, proceeding as create", "filename", filename, "error", err)
	}

	message := fmt.Sprintf("Add text: %s", filename)
	if sha != "" {
		message = fmt.Sprintf("Update text: %s", filename)
	}

	payload := putPayload{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  "main",
		SHA:     sha,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("cdn: failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("cdn: failed to build upload request: %w", err)
	}
	u.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cdn: github upload failed with status %d: %s", resp.StatusCode, string(errBody))
	}

	cdnURL := fmt.Sprintf("https://cdn.jsdelivr.net/gh/%s/%s@main/texts/%s", u.owner, u.repo, filename)
	slog.Info("cdn: uploaded text", "filename", filename, "url", cdnURL)
	return cdnURL, nil
}

func (u *Uploader) existingSHA(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	u.setHeaders(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var parsed contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.SHA, nil
}

func (u *Uploader) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "mindmapforge")
}
