package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/comperr"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceReadsContent(t *testing.T) {
	path := writeTemp(t, "a.comp", "x = 1")
	s := FileSource{Path: path}
	content, etag, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(content))
	assert.Contains(t, etag, path)
}

func TestFileSourceMissingFile(t *testing.T) {
	s := FileSource{Path: "/nonexistent/path/does/not/exist.comp"}
	_, _, err := s.Read(context.Background())
	require.Error(t, err)
	var cerr *comperr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, comperr.SRC002NotFound, cerr.Code)
}

func TestFileSourceTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.comp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxBytes+1))
	require.NoError(t, f.Close())

	s := FileSource{Path: path}
	_, _, err = s.Read(context.Background())
	require.Error(t, err)
	var cerr *comperr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, comperr.SRC003TooLarge, cerr.Code)
}

func TestResolveRejectsRemoteSchemes(t *testing.T) {
	for _, ref := range []string{"http://example.com/a.comp", "https://example.com/a.comp", "git+ssh://host/repo", "ssh://host/repo"} {
		_, err := Resolve(Config{}, ref, "/base")
		require.Error(t, err)
		var cerr *comperr.Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, comperr.SRC001UnsupportedScheme, cerr.Code)
	}
}

func TestResolveAbsolutePath(t *testing.T) {
	path := writeTemp(t, "a.comp", "x = 1")
	s, err := Resolve(Config{}, path, "/base")
	require.NoError(t, err)
	assert.Equal(t, path, s.(FileSource).Path)
}

func TestResolveRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.comp"), []byte("x = 1"), 0o644))
	s, err := Resolve(Config{}, "./a.comp", dir)
	require.NoError(t, err)
	content, _, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(content))
}

func TestResolveDottedNameAgainstRoots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "mod.comp"), []byte("x = 1"), 0o644))
	s, err := Resolve(Config{Roots: []string{dir}}, "pkg.mod", "/base")
	require.NoError(t, err)
	content, _, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(content))
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(Config{Roots: []string{t.TempDir()}}, "nope.mod", "/base")
	require.Error(t, err)
	var cerr *comperr.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, comperr.SRC002NotFound, cerr.Code)
}
