// Package archive writes ozx containers: zip files whose entries are stored
// uncompressed and whose comment carries the container record.
package archive

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"golang.org/x/crypto/blake2b"

	"github.com/odvcencio/ozx/pkg/zarr"
)

var (
	// ErrNonPortablePath is returned for entry names that cannot be stored
	// as portable relative zip paths.
	ErrNonPortablePath = errors.New("non-portable entry path")
	// ErrFinalized is returned for any write after Finalize.
	ErrFinalized = errors.New("archive writer already finalized")
)

// WriterError wraps a container-level failure.
type WriterError struct {
	Op   string
	Name string
	Err  error
}

func (e *WriterError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("archive: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }

// Entry describes one file entry written to the container.
type Entry struct {
	Name string
	Size int64
}

// Summary describes a finalized container.
type Summary struct {
	Entries     int
	Directories int
	Files       int
	Bytes       uint64 // container bytes, central directory and trailer included
	Digest      string // hex BLAKE2b-256 of the container bytes
}

type countedWriter struct {
	w io.Writer
	n uint64
}

func (cw *countedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

// Writer appends entries to a zip container. It never seeks, so out may be
// a pipe or stdout. Entries are written in call order.
type Writer struct {
	zw      *zip.Writer
	hasher  hash.Hash
	counter *countedWriter

	directories int
	files       int
	finished    bool
}

// NewWriter starts a container on out. The caller keeps ownership of out and
// closes it after Finalize.
func NewWriter(out io.Writer) *Writer {
	hasher, err := blake2b.New256(nil)
	if err != nil {
		// Only reachable with an oversized key.
		panic(err)
	}
	counter := &countedWriter{w: out}
	return &Writer{
		zw:      zip.NewWriter(io.MultiWriter(counter, hasher)),
		hasher:  hasher,
		counter: counter,
	}
}

// SetComment encodes c as JSON and attaches it as the container comment. It
// may be called any time before Finalize; the last call wins.
func (w *Writer) SetComment(c zarr.Comment) error {
	if w.finished {
		return ErrFinalized
	}
	data, err := json.Marshal(c)
	if err != nil {
		return &WriterError{Op: "encode comment", Err: err}
	}
	if err := w.zw.SetComment(string(data)); err != nil {
		return &WriterError{Op: "set comment", Err: err}
	}
	return nil
}

// AddDirectory writes an explicit directory entry for name.
func (w *Writer) AddDirectory(name string, modified time.Time) error {
	if w.finished {
		return ErrFinalized
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	hdr := &zip.FileHeader{
		Name:   name + "/",
		Method: zip.Store,
	}
	if !modified.IsZero() {
		hdr.Modified = modified
	}
	hdr.SetMode(os.ModeDir | 0o755)
	if _, err := w.zw.CreateHeader(hdr); err != nil {
		return &WriterError{Op: "add directory", Name: name, Err: err}
	}
	w.directories++
	return nil
}

// AddFile writes a stored file entry named name, streaming its content from
// r. Entries larger than 4 GiB are written with zip64 records.
func (w *Writer) AddFile(name string, r io.Reader, modified time.Time) (Entry, error) {
	if w.finished {
		return Entry{}, ErrFinalized
	}
	if err := ValidateName(name); err != nil {
		return Entry{}, err
	}
	hdr := &zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	}
	if !modified.IsZero() {
		hdr.Modified = modified
	}
	hdr.SetMode(0o644)
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return Entry{}, &WriterError{Op: "add file", Name: name, Err: err}
	}
	n, err := io.Copy(fw, r)
	if err != nil {
		return Entry{}, &WriterError{Op: "copy file", Name: name, Err: err}
	}
	w.files++
	return Entry{Name: name, Size: n}, nil
}

// Finalize writes the central directory and trailer. The Writer cannot be
// used afterwards.
func (w *Writer) Finalize() (Summary, error) {
	if w.finished {
		return Summary{}, ErrFinalized
	}
	w.finished = true
	if err := w.zw.Close(); err != nil {
		return Summary{}, &WriterError{Op: "finalize", Err: err}
	}
	return Summary{
		Entries:     w.directories + w.files,
		Directories: w.directories,
		Files:       w.files,
		Bytes:       w.counter.n,
		Digest:      hex.EncodeToString(w.hasher.Sum(nil)),
	}, nil
}

// ValidateName reports whether name is a portable relative entry path:
// valid UTF-8, slash separated, with no empty, "." or ".." components.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrNonPortablePath)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrNonPortablePath, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrNonPortablePath, name)
	case strings.Contains(name, `\`):
		return fmt.Errorf("%w: %q contains a backslash", ErrNonPortablePath, name)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrNonPortablePath, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q has component %q", ErrNonPortablePath, name, part)
		}
	}
	return nil
}
