package module

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterShinners/comp-sub000/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPrepareFoldsConstantDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.comp", "x = 1 + 2\ny = x * 10\n")

	loader := NewLoader(source.Config{Roots: []string{dir}})
	m, err := loader.Prepare(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, m.Errors)

	require.Len(t, m.Definitions, 2)
	xv, ok := m.FoldReference("x")
	require.True(t, ok)
	assert.Equal(t, "3", xv.String())

	yv, ok := m.FoldReference("y")
	require.True(t, ok)
	assert.Equal(t, "30", yv.String())
}

func TestPrepareAutoSuffixesRepeatedNames(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.comp", "a = 1\na = 2\n")

	loader := NewLoader(source.Config{Roots: []string{dir}})
	m, err := loader.Prepare(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, m.Definitions, 2)
	assert.Equal(t, "a", m.Definitions[0].Qualified)
	assert.Equal(t, "a.i2", m.Definitions[1].Qualified)
}

func TestPrepareResolvesImportedDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.comp", "base = 100\n")
	mainPath := writeFile(t, dir, "main.comp", "!import lib (\"./lib.comp\")\ntotal = lib.base + 1\n")

	loader := NewLoader(source.Config{Roots: []string{dir}})
	m, err := loader.Prepare(context.Background(), mainPath)
	require.NoError(t, err)
	assert.Empty(t, m.Errors)

	total, ok := m.FoldReference("total")
	require.True(t, ok)
	assert.Equal(t, "101", total.String())
}

func TestPrepareReportsUndefinedReference(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.comp", "x = nosuchname\n")

	loader := NewLoader(source.Config{Roots: []string{dir}})
	m, err := loader.Prepare(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, m.Errors)
	assert.Equal(t, "RSV001", string(m.Errors[0].Code))
}

func TestPrepareReportsFoldCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.comp", "a = b\nb = a\n")

	loader := NewLoader(source.Config{Roots: []string{dir}})
	m, err := loader.Prepare(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, m.Errors)
	assert.Equal(t, "MOD002", string(m.Errors[0].Code))
}
