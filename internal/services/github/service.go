// Package github is a minimal client for the GitHub repository contents API,
// covering exactly what backups need: list repositories, list a directory,
// read a file, write a file.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "obs-backup"

	// Listing and metadata calls get the short timeout, content transfer
	// calls the long one.
	listTimeout    = 30 * time.Second
	contentTimeout = 60 * time.Second

	reposPerPage = 100
)

// Service defines the interface for GitHub contents operations.
type Service interface {
	ListUserRepos(ctx context.Context) ([]models.Repo, error)
	ListDir(ctx context.Context, repo, branch, path string) ([]models.RepoContent, error)
	GetFileContent(ctx context.Context, repo, branch, path string) ([]byte, *models.RepoContent, error)
	PutFile(ctx context.Context, repo, branch, path string, content []byte, message string) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
	token      string
}

// New creates a new GitHub client. Per-request timeouts are applied through
// the request context, so the underlying client carries none.
func New(logger zerolog.Logger, token string) *Impl {
	return &Impl{
		httpClient: &http.Client{},
		logger:     logger,
		baseURL:    defaultBaseURL,
		token:      strings.TrimSpace(token),
	}
}

// NewWithClient creates a new GitHub client with a custom HTTP client and
// base URL (for testing).
func NewWithClient(logger zerolog.Logger, token string, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
	}
}

// JoinPath joins repo path segments with slashes, dropping empty segments
// and trimming stray slashes from each part.
func JoinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		if s := strings.Trim(p, "/"); s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, "/")
}

// RelUnder returns full relative to base, with both paths slash-normalized.
// The second return is false when full is not under base.
func RelUnder(full, base string) (string, bool) {
	f := strings.Trim(full, "/")
	b := strings.Trim(base, "/")
	if b == "" {
		return f, true
	}
	if f == b {
		return "", true
	}
	if strings.HasPrefix(f, b+"/") {
		return f[len(b)+1:], true
	}
	return "", false
}

func defaultBranch(branch string) string {
	if branch == "" {
		return "main"
	}
	return branch
}

// escapePath escapes a repo path segment by segment, keeping the slashes.
func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

func (s *Impl) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

// contentsURL builds /repos/{repo}/contents/{path}?ref={branch}.
func (s *Impl) contentsURL(repo, branch, repoPath string) string {
	u := fmt.Sprintf("%s/repos/%s/contents", s.baseURL, repo)
	if repoPath != "" {
		u += "/" + escapePath(repoPath)
	}
	return u + "?ref=" + url.QueryEscape(defaultBranch(branch))
}

// apiError drains a non-2xx response into an APIError carrying the status
// and body.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &models.APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// ListUserRepos fetches every repository accessible to the token, following
// pagination until an empty page.
func (s *Impl) ListUserRepos(ctx context.Context) ([]models.Repo, error) {
	var repos []models.Repo
	for page := 1; ; page++ {
		pageRepos, err := s.listReposPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(pageRepos) == 0 {
			break
		}
		repos = append(repos, pageRepos...)
	}
	s.logger.Debug().Int("count", len(repos)).Msg("listed user repositories")
	return repos, nil
}

func (s *Impl) listReposPage(ctx context.Context, page int) ([]models.Repo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/user/repos?per_page=%d&page=%d&type=all&sort=full_name", s.baseURL, reposPerPage, page)
	req, err := s.newRequest(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing repos: %w", apiError(resp))
	}

	var pageRepos []models.Repo
	if err := json.NewDecoder(resp.Body).Decode(&pageRepos); err != nil {
		return nil, fmt.Errorf("decoding repo list: %w", err)
	}
	return pageRepos, nil
}

// ListDir lists the immediate children of a repo path at a branch ref.
// A 404 means the path does not exist yet and yields an empty result. A
// single-object response (the path is a file) is normalized to one entry.
func (s *Impl) ListDir(ctx context.Context, repo, branch, path string) ([]models.RepoContent, error) {
	reqCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := s.newRequest(reqCtx, http.MethodGet, s.contentsURL(repo, branch, path), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing %s: %w", path, apiError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading list response: %w", err)
	}

	var entries []models.RepoContent
	if err := json.Unmarshal(body, &entries); err == nil {
		return entries, nil
	}

	var single models.RepoContent
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}
	return []models.RepoContent{single}, nil
}

// GetFileContent reads one file at a branch ref and returns its decoded
// bytes along with the raw content object.
func (s *Impl) GetFileContent(ctx context.Context, repo, branch, path string) ([]byte, *models.RepoContent, error) {
	reqCtx, cancel := context.WithTimeout(ctx, contentTimeout)
	defer cancel()

	req, err := s.newRequest(reqCtx, http.MethodGet, s.contentsURL(repo, branch, path), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("downloading %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("downloading %s: %w", path, apiError(resp))
	}

	var content models.RepoContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, nil, fmt.Errorf("decoding content response: %w", err)
	}
	if content.Encoding != "base64" {
		return nil, nil, fmt.Errorf("%s: %w", path, models.ErrNotBase64File)
	}

	// GitHub line-wraps the base64 payload.
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, models.ErrNotBase64File)
	}
	return data, &content, nil
}

// putFileRequest is the request body for the contents PUT endpoint.
type putFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// PutFile creates or overwrites one file on the given branch. Each call is
// its own commit; there is no bulk write endpoint.
func (s *Impl) PutFile(ctx context.Context, repo, branch, path string, content []byte, message string) error {
	body, err := json.Marshal(putFileRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  defaultBranch(branch),
	})
	if err != nil {
		return fmt.Errorf("marshaling upload request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, contentTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/repos/%s/contents/%s", s.baseURL, repo, escapePath(path))
	req, err := s.newRequest(reqCtx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("uploading %s: %w", path, apiError(resp))
	}
	return nil
}
