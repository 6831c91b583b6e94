package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0644))
	return path
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestAddRegistersAndSelects(t *testing.T) {
	r := newTestRegistry(t)

	doc, err := r.Add(writeSource(t, "spec.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "spec.pdf", doc.Name)
	assert.NotEmpty(t, doc.ID)
	assert.FileExists(t, doc.Path)

	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, doc.ID, selected.ID)
	assert.Len(t, r.Documents(), 1)
}

func TestAddMissingSourceFails(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Empty(t, r.Documents())
}

func TestSelectToggles(t *testing.T) {
	r := newTestRegistry(t)
	doc, err := r.Add(writeSource(t, "a.pdf"))
	require.NoError(t, err)

	// Selecting the selected document deselects it.
	r.Select(doc.ID)
	_, ok := r.Selected()
	assert.False(t, ok)

	// Selecting it again restores the selection.
	r.Select(doc.ID)
	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, doc.ID, selected.ID)
}

func TestSelectReplacesOutright(t *testing.T) {
	r := newTestRegistry(t)
	a, err := r.Add(writeSource(t, "a.pdf"))
	require.NoError(t, err)
	b, err := r.Add(writeSource(t, "b.pdf"))
	require.NoError(t, err)

	// Add selected b; switch straight back to a, no close-then-open.
	r.Select(a.ID)
	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, selected.ID)
	assert.NotEqual(t, b.ID, selected.ID)
}

func TestSelectUnknownIDIgnored(t *testing.T) {
	r := newTestRegistry(t)
	doc, err := r.Add(writeSource(t, "a.pdf"))
	require.NoError(t, err)

	r.Select("missing")
	selected, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, doc.ID, selected.ID)
}

func TestRemoveReleasesHandle(t *testing.T) {
	r := newTestRegistry(t)
	doc, err := r.Add(writeSource(t, "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, r.Remove(doc.ID))
	assert.Empty(t, r.Documents())
	assert.NoFileExists(t, doc.Path)

	_, ok := r.Selected()
	assert.False(t, ok)
}

func TestClearReleasesAllHandles(t *testing.T) {
	r := newTestRegistry(t)
	a, err := r.Add(writeSource(t, "a.pdf"))
	require.NoError(t, err)
	b, err := r.Add(writeSource(t, "b.pdf"))
	require.NoError(t, err)

	require.NoError(t, r.Clear())
	assert.Empty(t, r.Documents())
	assert.NoFileExists(t, a.Path)
	assert.NoFileExists(t, b.Path)

	_, ok := r.Selected()
	assert.False(t, ok)
}
