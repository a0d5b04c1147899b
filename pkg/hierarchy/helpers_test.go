package hierarchy

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	groupDoc = `{"node_type":"group"}`
	arrayDoc = `{"node_type":"array","shape":[4,4]}`
	rootDoc  = `{"node_type":"group","attributes":{"ome":{"version":"0.5"}}}`
)

// writeTree creates files (slash-separated paths relative to the returned
// root) with the given contents. A trailing slash creates an empty directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("MkdirAll(%s): %v", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", p, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	return root
}

// faultyFS injects errors for specific root-relative names.
type faultyFS struct {
	billy.Filesystem
	openErr    map[string]error
	readDirErr map[string]error
	statErr    map[string]error
}

func newFaultyFS(root string) *faultyFS {
	return &faultyFS{
		Filesystem: osfs.New(root),
		openErr:    make(map[string]error),
		readDirErr: make(map[string]error),
		statErr:    make(map[string]error),
	}
}

func (f *faultyFS) Open(name string) (billy.File, error) {
	if err, ok := f.openErr[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return f.Filesystem.Open(name)
}

func (f *faultyFS) ReadDir(name string) ([]os.FileInfo, error) {
	if err, ok := f.readDirErr[name]; ok {
		return nil, &os.PathError{Op: "readdirent", Path: name, Err: err}
	}
	return f.Filesystem.ReadDir(name)
}

// ReadDirEntries reports names in statErr as entries that could not be
// stat'ed and lists the rest.
func (f *faultyFS) ReadDirEntries(name string) ([]os.FileInfo, []EntryError, error) {
	infos, err := f.ReadDir(name)
	if err != nil {
		return nil, nil, err
	}
	dir := name
	if dir == "." {
		dir = ""
	}
	var (
		kept   []os.FileInfo
		failed []EntryError
	)
	for _, fi := range infos {
		rel := joinRel(dir, fi.Name())
		if err, ok := f.statErr[rel]; ok {
			failed = append(failed, EntryError{Name: fi.Name(), Err: &os.PathError{Op: "lstat", Path: rel, Err: err}})
			continue
		}
		kept = append(kept, fi)
	}
	return kept, failed, nil
}

func collectDescriptors(t *testing.T, w *MetadataWalker) []string {
	t.Helper()
	var paths []string
	for {
		d, err := w.Next()
		if err == io.EOF {
			return paths
		}
		if err != nil {
			t.Fatalf("MetadataWalker.Next: %v", err)
		}
		paths = append(paths, d.Path)
	}
}

// drainData returns file and directory paths, closing every file.
func drainData(t *testing.T, w *DataWalker) (files, dirs []string) {
	t.Helper()
	for {
		item, err := w.Next()
		if err == io.EOF {
			return files, dirs
		}
		if err != nil {
			t.Fatalf("DataWalker.Next: %v", err)
		}
		if item.IsDir() {
			dirs = append(dirs, item.Path)
			continue
		}
		files = append(files, item.Path)
		if err := item.File.Close(); err != nil {
			t.Fatalf("Close(%s): %v", item.Path, err)
		}
	}
}

func warnings(hook *logtest.Hook) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}
