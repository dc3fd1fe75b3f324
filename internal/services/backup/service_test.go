package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/github"
	"github.com/Celestial04/obs-backup/internal/services/walker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations.
type mockLocator struct {
	dir string
	err error
}

func (m *mockLocator) Dir() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.dir, nil
}

func (m *mockLocator) DirAny() (string, error) {
	return m.dir, nil
}

type mockArchiver struct {
	createFolderFunc func(baseDir string, opts walker.Options) (*models.BackupResult, error)
	createZipFunc    func(baseDir string, opts walker.Options) (*models.BackupResult, error)
}

func (m *mockArchiver) CreateFolder(baseDir string, opts walker.Options) (*models.BackupResult, error) {
	if m.createFolderFunc != nil {
		return m.createFolderFunc(baseDir, opts)
	}
	return &models.BackupResult{BundleName: "bundle", Destination: baseDir, Files: 1}, nil
}

func (m *mockArchiver) CreateZip(baseDir string, opts walker.Options) (*models.BackupResult, error) {
	if m.createZipFunc != nil {
		return m.createZipFunc(baseDir, opts)
	}
	return &models.BackupResult{BundleName: "bundle", Destination: baseDir + "/bundle.zip", Files: 1}, nil
}

type putCall struct {
	repo    string
	branch  string
	path    string
	content []byte
	message string
}

type mockGitHub struct {
	listReposFunc func(ctx context.Context) ([]models.Repo, error)
	listDirFunc   func(ctx context.Context, repo, branch, path string) ([]models.RepoContent, error)
	getFileFunc   func(ctx context.Context, repo, branch, path string) ([]byte, *models.RepoContent, error)
	putFileFunc   func(ctx context.Context, repo, branch, path string, content []byte, message string) error

	putCalls []putCall
}

func (m *mockGitHub) ListUserRepos(ctx context.Context) ([]models.Repo, error) {
	if m.listReposFunc != nil {
		return m.listReposFunc(ctx)
	}
	return nil, nil
}

func (m *mockGitHub) ListDir(ctx context.Context, repo, branch, path string) ([]models.RepoContent, error) {
	if m.listDirFunc != nil {
		return m.listDirFunc(ctx, repo, branch, path)
	}
	return nil, nil
}

func (m *mockGitHub) GetFileContent(ctx context.Context, repo, branch, path string) ([]byte, *models.RepoContent, error) {
	if m.getFileFunc != nil {
		return m.getFileFunc(ctx, repo, branch, path)
	}
	return nil, nil, nil
}

func (m *mockGitHub) PutFile(ctx context.Context, repo, branch, path string, content []byte, message string) error {
	m.putCalls = append(m.putCalls, putCall{repo: repo, branch: branch, path: path, content: content, message: message})
	if m.putFileFunc != nil {
		return m.putFileFunc(ctx, repo, branch, path, content, message)
	}
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

func testHostname() (string, error) {
	return "studio", nil
}

func makeConfigTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for f, content := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestService(cfgDir string, gh *mockGitHub, arch *mockArchiver) *Impl {
	logger := testLogger()
	if arch == nil {
		arch = &mockArchiver{}
	}
	return NewWithServices(
		logger,
		&mockLocator{dir: cfgDir},
		walker.New(logger),
		arch,
		func(token string) github.Service { return gh },
		fixedNow,
		testHostname,
	)
}

func githubConfig() *models.GitHubConfig {
	return &models.GitHubConfig{
		Token:      "tok123",
		Repository: "octocat/dotfiles",
		Branch:     "main",
		Folder:     "obs-backups",
	}
}

func TestRun_LocalDelegatesToArchiver(t *testing.T) {
	var gotBase string
	var gotOpts walker.Options
	arch := &mockArchiver{
		createFolderFunc: func(baseDir string, opts walker.Options) (*models.BackupResult, error) {
			gotBase = baseDir
			gotOpts = opts
			return &models.BackupResult{BundleName: "b", Destination: baseDir, Files: 2}, nil
		},
	}
	svc := newTestService(t.TempDir(), &mockGitHub{}, arch)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationLocal, LocalDir: "/backups"},
		Backup:      models.BackupSettings{IncludeLogs: true},
	}
	result, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, "/backups", gotBase)
	assert.True(t, gotOpts.IncludeLogs)
	assert.False(t, gotOpts.IncludeCache)
	assert.Equal(t, 2, result.Files)
}

func TestRun_LocalZip(t *testing.T) {
	called := false
	arch := &mockArchiver{
		createZipFunc: func(baseDir string, opts walker.Options) (*models.BackupResult, error) {
			called = true
			return &models.BackupResult{BundleName: "b", Destination: baseDir + "/b.zip", Files: 1}, nil
		},
	}
	svc := newTestService(t.TempDir(), &mockGitHub{}, arch)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationLocal, LocalDir: "/backups", Zip: true},
	}
	_, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestRun_RemoteMissingCredentials(t *testing.T) {
	svc := newTestService(t.TempDir(), &mockGitHub{}, nil)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationGitHub},
		GitHub:      &models.GitHubConfig{Token: "tok"}, // no repository
	}
	_, err := svc.Run(context.Background(), cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingCredentials)
}

func TestRun_RemoteUploadsEveryFile(t *testing.T) {
	cfgDir := makeConfigTree(t, map[string]string{
		"global.ini":             "[General]\n",
		"basic/scenes/main.json": `{"sources":[]}`,
	})
	gh := &mockGitHub{}
	svc := newTestService(cfgDir, gh, nil)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationGitHub},
		GitHub:      githubConfig(),
	}
	result, err := svc.Run(context.Background(), cfg)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, "obs-config-studio-20240102-030405", result.BundleName)
	assert.Equal(t, "obs-backups/obs-config-studio-20240102-030405/obs-studio", result.Destination)

	require.Len(t, gh.putCalls, 2)
	base := "obs-backups/obs-config-studio-20240102-030405/obs-studio/"
	for _, call := range gh.putCalls {
		assert.Equal(t, "octocat/dotfiles", call.repo)
		assert.Equal(t, "main", call.branch)
		assert.True(t, len(call.path) > len(base) && call.path[:len(base)] == base, "path %q not under %q", call.path, base)
		assert.Contains(t, call.message, "OBS backup obs-config-studio-20240102-030405: ")
	}
}

func TestRun_RemotePartialFailureReportsCount(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("f%d.ini", i)] = "x"
	}
	cfgDir := makeConfigTree(t, files)

	gh := &mockGitHub{}
	gh.putFileFunc = func(ctx context.Context, repo, branch, path string, content []byte, message string) error {
		if len(gh.putCalls) == 3 {
			return &models.APIError{StatusCode: 502, Body: "bad gateway"}
		}
		return nil
	}
	svc := newTestService(cfgDir, gh, nil)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationGitHub},
		GitHub:      githubConfig(),
	}
	_, err := svc.Run(context.Background(), cfg)

	require.Error(t, err)
	// Two files committed before the failing third call.
	assert.Contains(t, err.Error(), "after 2 files")
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
}

func TestRun_RemoteConfigMissing(t *testing.T) {
	logger := testLogger()
	svc := NewWithServices(
		logger,
		&mockLocator{err: models.ErrConfigNotFound},
		walker.New(logger),
		&mockArchiver{},
		func(token string) github.Service { return &mockGitHub{} },
		fixedNow,
		testHostname,
	)

	cfg := models.BackupConfig{
		Destination: models.DestinationConfig{Type: models.DestinationGitHub},
		GitHub:      githubConfig(),
	}
	_, err := svc.Run(context.Background(), cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigNotFound)
}

func TestListRemoteBackups_FiltersAndSortsNewestFirst(t *testing.T) {
	gh := &mockGitHub{
		listDirFunc: func(ctx context.Context, repo, branch, path string) ([]models.RepoContent, error) {
			assert.Equal(t, "obs-backups", path)
			return []models.RepoContent{
				{Name: "obs-config-studio-20240101-090000", Path: "obs-backups/obs-config-studio-20240101-090000", Type: models.ContentTypeDir},
				{Name: "README.md", Path: "obs-backups/README.md", Type: models.ContentTypeFile},
				{Name: "obs-config-studio-20240301-090000", Path: "obs-backups/obs-config-studio-20240301-090000", Type: models.ContentTypeDir},
			}, nil
		},
	}
	svc := newTestService(t.TempDir(), gh, nil)

	dirs, err := svc.ListRemoteBackups(context.Background(), *githubConfig())

	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "obs-config-studio-20240301-090000", dirs[0].Name)
	assert.Equal(t, "obs-config-studio-20240101-090000", dirs[1].Name)
}

func TestListRemoteBackups_MissingCredentials(t *testing.T) {
	svc := newTestService(t.TempDir(), &mockGitHub{}, nil)

	_, err := svc.ListRemoteBackups(context.Background(), models.GitHubConfig{})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingCredentials)
}
