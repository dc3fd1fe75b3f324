package archiver

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/walker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

func testHostname() (string, error) {
	return "studio", nil
}

func newTestArchiver(t *testing.T, cfgDir string) *Impl {
	t.Helper()
	logger := testLogger()
	return NewWithDeps(logger, &mockLocator{dir: cfgDir}, walker.New(logger), fixedNow, testHostname)
}

func makeConfigTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"global.ini":                    "[General]\n",
		"basic/profiles/main/basic.ini": "[Output]\n",
		"basic/scenes/main.json":        `{"sources":[]}`,
	}
	for f, content := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestBundleName(t *testing.T) {
	name := BundleName(testHostname, fixedNow)
	assert.Equal(t, "obs-config-studio-20240102-030405", name)
}

func TestBundleName_HostnameFallback(t *testing.T) {
	name := BundleName(func() (string, error) { return "", fmt.Errorf("no hostname") }, fixedNow)
	assert.Equal(t, "obs-config-host-20240102-030405", name)
}

func TestCreateFolder_Layout(t *testing.T) {
	cfgDir := makeConfigTree(t)
	baseDir := filepath.Join(t.TempDir(), "backups")
	svc := newTestArchiver(t, cfgDir)

	result, err := svc.CreateFolder(baseDir, walker.Options{})

	require.NoError(t, err)
	assert.Equal(t, "obs-config-studio-20240102-030405", result.BundleName)
	assert.Equal(t, filepath.Join(baseDir, result.BundleName), result.Destination)
	assert.Equal(t, 3, result.Files)

	copied := filepath.Join(result.Destination, "obs-studio", "basic", "profiles", "main", "basic.ini")
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "[Output]\n", string(data))
}

func TestCreateFolder_PreservesModTime(t *testing.T) {
	cfgDir := makeConfigTree(t)
	src := filepath.Join(cfgDir, "global.ini")
	mtime := time.Date(2023, 6, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	svc := newTestArchiver(t, cfgDir)
	result, err := svc.CreateFolder(t.TempDir(), walker.Options{})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(result.Destination, "obs-studio", "global.ini"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestCreateFolder_ConfigMissing(t *testing.T) {
	logger := testLogger()
	svc := NewWithDeps(logger, &mockLocator{err: models.ErrConfigNotFound}, walker.New(logger), fixedNow, testHostname)

	_, err := svc.CreateFolder(t.TempDir(), walker.Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfigNotFound)
}

func TestCreateZip_Layout(t *testing.T) {
	cfgDir := makeConfigTree(t)
	baseDir := t.TempDir()
	svc := newTestArchiver(t, cfgDir)

	result, err := svc.CreateZip(baseDir, walker.Options{})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "obs-config-studio-20240102-030405.zip"), result.Destination)
	assert.Equal(t, 3, result.Files)

	zr, err := zip.OpenReader(result.Destination)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	names := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		names[f.Name] = data
	}

	// Every entry sits under the obs-studio/ top-level prefix.
	require.Contains(t, names, "obs-studio/global.ini")
	require.Contains(t, names, "obs-studio/basic/profiles/main/basic.ini")
	require.Contains(t, names, "obs-studio/basic/scenes/main.json")
	assert.Equal(t, "[General]\n", string(names["obs-studio/global.ini"]))
}

func TestCreateFolder_CreatesBaseDir(t *testing.T) {
	cfgDir := makeConfigTree(t)
	baseDir := filepath.Join(t.TempDir(), "a", "b", "c")
	svc := newTestArchiver(t, cfgDir)

	_, err := svc.CreateFolder(baseDir, walker.Options{})

	require.NoError(t, err)
	info, err := os.Stat(baseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateFolder_DoesNotTouchSource(t *testing.T) {
	cfgDir := makeConfigTree(t)
	svc := newTestArchiver(t, cfgDir)

	before, err := walker.New(testLogger()).Collect(cfgDir, walker.Options{IncludeLogs: true, IncludeCache: true})
	require.NoError(t, err)

	_, err = svc.CreateFolder(t.TempDir(), walker.Options{})
	require.NoError(t, err)

	after, err := walker.New(testLogger()).Collect(cfgDir, walker.Options{IncludeLogs: true, IncludeCache: true})
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}
