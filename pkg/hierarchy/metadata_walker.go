package hierarchy

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/ozx/pkg/zarr"
)

// Descriptor is one descriptor file found by a MetadataWalker.
type Descriptor struct {
	Path     string // root-relative, slash separated, ends in zarr.json
	Data     []byte // raw file content, written to the container verbatim
	Metadata *zarr.Metadata
	Info     os.FileInfo
}

// MetadataWalker yields every descriptor file under a root in breadth-first
// order, siblings sorted lexicographically. Directories below an array node
// are never visited.
//
// Any listing, read or decode error is fatal: once Next returns an error
// other than io.EOF the walker keeps returning it.
type MetadataWalker struct {
	fsys   billy.Filesystem
	logger logrus.FieldLogger

	// FIFO of root-relative directories still to visit.
	queue []string
	err   error
}

// NewMetadataWalker returns a walker over fsys, whose root is the hierarchy
// root.
func NewMetadataWalker(fsys billy.Filesystem, opts ...Option) *MetadataWalker {
	o := buildOptions(opts)
	return &MetadataWalker{
		fsys:   fsys,
		logger: o.logger.WithField("action", "walk_metadata"),
		queue:  []string{""},
	}
}

// Next returns the next descriptor, or io.EOF when the walk is complete.
func (w *MetadataWalker) Next() (Descriptor, error) {
	if w.err != nil {
		return Descriptor{}, w.err
	}
	for len(w.queue) > 0 {
		dir := w.queue[0]
		w.queue = w.queue[1:]
		w.logger.WithField("dir", dir).Debug("visiting directory")

		desc, found, err := w.visit(dir)
		if err != nil {
			w.err = err
			w.queue = nil
			return Descriptor{}, err
		}
		if found {
			return desc, nil
		}
	}
	w.err = io.EOF
	return Descriptor{}, io.EOF
}

// visit lists dir, enqueues its sorted sub-directories unless dir holds an
// array descriptor, and returns the descriptor if there is one.
func (w *MetadataWalker) visit(dir string) (Descriptor, bool, error) {
	entries, failed, err := readDir(w.fsys, fsPath(dir))
	if err != nil {
		return Descriptor{}, false, fmt.Errorf("walk metadata: list %q: %w", fsPath(dir), err)
	}
	for _, ee := range failed {
		if strings.HasPrefix(ee.Name, zarr.HiddenPrefix) {
			continue
		}
		return Descriptor{}, false, fmt.Errorf("walk metadata: stat %q: %w", joinRel(dir, ee.Name), ee.Err)
	}

	var (
		subdirs []string
		desc    Descriptor
		found   bool
	)
	for _, fi := range entries {
		name := fi.Name()
		if strings.HasPrefix(name, zarr.HiddenPrefix) {
			w.logger.WithField("entry", joinRel(dir, name)).Debug("skipping hidden entry")
			continue
		}

		switch {
		case fi.Mode().IsRegular() && name == zarr.DescriptorName:
			d, err := w.read(joinRel(dir, name), fi)
			if err != nil {
				return Descriptor{}, false, err
			}
			if d.Metadata.IsArray() {
				// Arrays are leaves: whatever lies below is chunk data.
				return d, true, nil
			}
			desc, found = d, true
		case fi.IsDir():
			subdirs = append(subdirs, joinRel(dir, name))
		}
	}

	sort.Strings(subdirs)
	w.queue = append(w.queue, subdirs...)
	return desc, found, nil
}

func (w *MetadataWalker) read(rel string, fi os.FileInfo) (Descriptor, error) {
	data, err := util.ReadFile(w.fsys, rel)
	if err != nil {
		return Descriptor{}, fmt.Errorf("walk metadata: read %q: %w", rel, err)
	}
	m, err := zarr.ParseMetadata(rel, data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("walk metadata: %w", err)
	}
	return Descriptor{Path: rel, Data: data, Metadata: m, Info: fi}, nil
}
