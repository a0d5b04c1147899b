package hierarchy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/ozx/pkg/zarr"
)

func TestOpen_CanonicalizesRoot(t *testing.T) {
	root := writeTree(t, map[string]string{"zarr.json": rootDoc})
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	h, err := Open(link)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, h.Root())

	got := collectDescriptors(t, h.WalkMetadata())
	assert.Equal(t, []string{"zarr.json"}, got)
}

func TestOpen_RejectsMissingAndNonDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	root := writeTree(t, map[string]string{"file": "x"})
	_, err = Open(filepath.Join(root, "file"))
	assert.Error(t, err)
}

func TestRootMetadata(t *testing.T) {
	h, err := Open(writeTree(t, map[string]string{"zarr.json": rootDoc}))
	require.NoError(t, err)

	m, err := h.RootMetadata()
	require.NoError(t, err)
	assert.Equal(t, zarr.NodeTypeGroup, m.NodeType)
	v, ok := m.FormatVersion()
	assert.True(t, ok)
	assert.Equal(t, "0.5", v)
}

func TestRootMetadata_Missing(t *testing.T) {
	h, err := Open(writeTree(t, map[string]string{"a/zarr.json": groupDoc}))
	require.NoError(t, err)

	_, err = h.RootMetadata()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRootMetadata), "err = %v", err)
}

func TestRootMetadata_Malformed(t *testing.T) {
	h, err := Open(writeTree(t, map[string]string{"zarr.json": `{"attributes":{}}`}))
	require.NoError(t, err)

	_, err = h.RootMetadata()
	require.Error(t, err)
	assert.True(t, errors.Is(err, zarr.ErrDecode), "err = %v", err)
}

func TestWalkData_HonoursExclusion(t *testing.T) {
	h, err := Open(sampleTree(t))
	require.NoError(t, err)

	all, _ := drainData(t, h.WalkData(false))
	data, _ := drainData(t, h.WalkData(true))
	assert.Len(t, all, 7)
	assert.Len(t, data, 4)
}

func TestExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"zarr.json": rootDoc,
		"a/0":       "zero",
		"out.ozx":   "partial",
	})
	h, err := Open(root)
	require.NoError(t, err)

	assert.False(t, h.Exclude(filepath.Join(t.TempDir(), "elsewhere.ozx")))
	assert.False(t, h.Exclude(root))
	assert.True(t, h.Exclude(filepath.Join(root, "out.ozx")))

	files, _ := drainData(t, h.WalkData(false))
	assert.ElementsMatch(t, []string{"zarr.json", "a/0"}, files)
}
