package hierarchy

import (
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// EntryError is a directory entry that was listed but could not be stat'ed.
type EntryError struct {
	Name string
	Err  error
}

// EntryLister is implemented by filesystems that report stat failures per
// entry instead of failing the whole listing.
type EntryLister interface {
	ReadDirEntries(dir string) ([]os.FileInfo, []EntryError, error)
}

// localFS is the osfs filesystem Open uses. billy's own ReadDir gives up on
// the first entry it cannot stat; ReadDirEntries keeps the rest.
type localFS struct {
	billy.Filesystem
}

func newLocalFS(root string) *localFS {
	return &localFS{Filesystem: osfs.New(root)}
}

func (fs *localFS) ReadDirEntries(dir string) ([]os.FileInfo, []EntryError, error) {
	entries, err := os.ReadDir(fs.Join(fs.Root(), dir))
	if err != nil {
		return nil, nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	var failed []EntryError
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			failed = append(failed, EntryError{Name: entry.Name(), Err: err})
			continue
		}
		infos = append(infos, fi)
	}
	return infos, failed, nil
}

// readDir lists dir, splitting out per-entry failures when fsys can.
func readDir(fsys billy.Filesystem, dir string) ([]os.FileInfo, []EntryError, error) {
	if l, ok := fsys.(EntryLister); ok {
		return l.ReadDirEntries(dir)
	}
	infos, err := fsys.ReadDir(dir)
	return infos, nil, err
}
