package hierarchy

import (
	"io"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/ozx/pkg/zarr"
)

// Item is one entry produced by a DataWalker: an open regular file, or a
// directory that must exist explicitly in the container (File is nil).
type Item struct {
	Path string // root-relative, slash separated
	File billy.File
	Info os.FileInfo
}

// IsDir reports whether the item is a directory marker.
func (i Item) IsDir() bool { return i.File == nil }

// WalkStats counts what a DataWalker has produced so far.
type WalkStats struct {
	Files       int
	Directories int
	Skipped     int
}

type pendingEntry struct {
	path string
	info os.FileInfo
}

// DataWalker yields every regular file and every non-root directory under a
// root, depth first. The order is otherwise unspecified.
//
// Errors never stop the walk: unreadable files, unlistable directories and
// entries that are neither files nor directories are logged and skipped.
// Files are opened only when they are returned; the caller must close them.
type DataWalker struct {
	fsys               billy.Filesystem
	excludeDescriptors bool
	excluded           map[string]struct{}
	logger             logrus.FieldLogger

	// LIFO stacks of root-relative paths.
	dirs  []pendingEntry
	files []pendingEntry

	stats WalkStats
}

// NewDataWalker returns a walker over fsys. With excludeDescriptors set,
// zarr.json files are left out entirely.
func NewDataWalker(fsys billy.Filesystem, excludeDescriptors bool, opts ...Option) *DataWalker {
	o := buildOptions(opts)
	return &DataWalker{
		fsys:               fsys,
		excludeDescriptors: excludeDescriptors,
		excluded:           o.excluded,
		logger:             o.logger.WithField("action", "walk_data"),
		dirs:               []pendingEntry{{path: ""}},
	}
}

// Next returns the next item, or io.EOF once the tree is exhausted. It never
// returns any other error.
func (w *DataWalker) Next() (Item, error) {
	for {
		if n := len(w.files); n > 0 {
			pf := w.files[n-1]
			w.files = w.files[:n-1]

			f, err := w.fsys.Open(pf.path)
			if err != nil {
				w.stats.Skipped++
				w.logger.WithField("path", pf.path).WithError(err).Warn("skipping unreadable file")
				continue
			}
			w.stats.Files++
			return Item{Path: pf.path, File: f, Info: pf.info}, nil
		}

		n := len(w.dirs)
		if n == 0 {
			return Item{}, io.EOF
		}
		pd := w.dirs[n-1]
		w.dirs = w.dirs[:n-1]

		if !w.list(pd.path) {
			continue
		}
		// The root is implied by the container and never gets an entry.
		if pd.path == "" {
			continue
		}
		w.stats.Directories++
		return Item{Path: pd.path, Info: pd.info}, nil
	}
}

// list pushes the contents of dir onto the stacks. It reports false when the
// directory could not be listed at all.
func (w *DataWalker) list(dir string) bool {
	entries, failed, err := readDir(w.fsys, fsPath(dir))
	if err != nil {
		w.stats.Skipped++
		w.logger.WithField("dir", fsPath(dir)).WithError(err).Warn("skipping directory after error listing it")
		return false
	}
	for _, ee := range failed {
		w.stats.Skipped++
		w.logger.WithField("path", joinRel(dir, ee.Name)).WithError(ee.Err).Warn("skipping entry that could not be inspected")
	}

	for _, fi := range entries {
		if fi == nil {
			w.stats.Skipped++
			w.logger.WithField("dir", fsPath(dir)).Warn("skipping entry without stat information")
			continue
		}
		rel := joinRel(dir, fi.Name())
		if _, ok := w.excluded[rel]; ok {
			w.logger.WithField("path", rel).Debug("leaving out excluded entry")
			continue
		}
		switch {
		case fi.IsDir():
			w.dirs = append(w.dirs, pendingEntry{path: rel, info: fi})
		case fi.Mode().IsRegular():
			if w.excludeDescriptors && fi.Name() == zarr.DescriptorName {
				continue
			}
			w.files = append(w.files, pendingEntry{path: rel, info: fi})
		default:
			w.stats.Skipped++
			w.logger.WithFields(logrus.Fields{
				"path": rel,
				"mode": fi.Mode().String(),
			}).Warn("skipping entry that is neither a regular file nor a directory")
		}
	}
	return true
}

// Stats returns counts accumulated so far.
func (w *DataWalker) Stats() WalkStats {
	return w.stats
}
