// Package hierarchy walks a local zarr hierarchy. It provides the two
// traversals a container is built from: a deterministic breadth-first walk of
// descriptor files, and a best-effort depth-first walk of everything else.
package hierarchy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/ozx/pkg/zarr"
)

// ErrNoRootMetadata is returned when the root has no descriptor file.
var ErrNoRootMetadata = errors.New("no " + zarr.DescriptorName + " at hierarchy root")

// Hierarchy composes the walkers over one root.
type Hierarchy struct {
	root string
	fsys billy.Filesystem
	opts []Option

	logger logrus.FieldLogger
}

// Open canonicalizes root and returns a Hierarchy over the directory it
// resolves to. All paths produced afterwards are relative to that directory.
func Open(root string, opts ...Option) (*Hierarchy, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("open hierarchy: resolve %q: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("open hierarchy: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("open hierarchy: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open hierarchy: %s is not a directory", canonical)
	}

	h := New(newLocalFS(canonical), opts...)
	h.root = canonical
	return h, nil
}

// New returns a Hierarchy over an already rooted filesystem.
func New(fsys billy.Filesystem, opts ...Option) *Hierarchy {
	return &Hierarchy{fsys: fsys, opts: append([]Option(nil), opts...), logger: buildOptions(opts).logger}
}

// Root returns the canonical root directory, or "" when the Hierarchy was
// built with New.
func (h *Hierarchy) Root() string {
	return h.root
}

// Exclude leaves the file at path out of later data walks when it lies
// under the root, and reports whether it does. It is used to keep the
// container being written from being packed into itself.
func (h *Hierarchy) Exclude(path string) bool {
	if h.root == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(h.root, filepath.Join(dir, filepath.Base(abs)))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	h.opts = append(h.opts, WithExcluded(filepath.ToSlash(rel)))
	return true
}

// RootMetadata reads and decodes the root descriptor.
func (h *Hierarchy) RootMetadata() (*zarr.Metadata, error) {
	data, err := util.ReadFile(h.fsys, zarr.DescriptorName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("root metadata: %w", ErrNoRootMetadata)
		}
		return nil, fmt.Errorf("root metadata: read: %w", err)
	}
	m, err := zarr.ParseMetadata(zarr.DescriptorName, data)
	if err != nil {
		return nil, fmt.Errorf("root metadata: %w", err)
	}
	return m, nil
}

// WalkMetadata returns a fresh walker over the descriptor files.
func (h *Hierarchy) WalkMetadata() *MetadataWalker {
	h.logger.Info("finding metadata")
	return NewMetadataWalker(h.fsys, h.opts...)
}

// WalkData returns a fresh walker over files and directories.
func (h *Hierarchy) WalkData(excludeDescriptors bool) *DataWalker {
	h.logger.Info("finding data")
	return NewDataWalker(h.fsys, excludeDescriptors, h.opts...)
}
