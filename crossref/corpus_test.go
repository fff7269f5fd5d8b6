package crossref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestLoadArchitectureDir(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "payments.arch.json", `{"req": "gemara://policies/p/controls/c/requirements/r"}`)
	writeCorpusFile(t, dir, "trading.arch.json", `{}`)
	writeCorpusFile(t, dir, "notes.md", "not an architecture file")

	docs, err := LoadArchitectureDir(dir, "", nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Sorted path order.
	assert.Equal(t, "payments.arch.json", filepath.Base(docs[0].Path))
	assert.Equal(t, "trading.arch.json", filepath.Base(docs[1].Path))
}

func TestLoadArchitectureDir_RecursivePattern(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "top.arch.json", `{}`)
	writeCorpusFile(t, dir, "nested/deep/inner.arch.json", `{}`)

	docs, err := LoadArchitectureDir(dir, "**/*.arch.json", nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoadArchitectureDir_Empty(t *testing.T) {
	docs, err := LoadArchitectureDir(t.TempDir(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
