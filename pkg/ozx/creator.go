// Package ozx builds .ozx containers from local zarr hierarchies.
package ozx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/ozx/pkg/archive"
	"github.com/odvcencio/ozx/pkg/hierarchy"
	"github.com/odvcencio/ozx/pkg/zarr"
)

// ErrMissingRootVersion is returned when the root descriptor carries no
// attributes.ome.version.
var ErrMissingRootVersion = errors.New("no recognized format metadata found at root")

// ErrAlreadyCreated is returned by a second call to Create.
var ErrAlreadyCreated = errors.New("create already called")

// State is the progress of a Creator.
type State int

const (
	StateIdle State = iota
	StateRootRead
	StateCommentSet
	StateMetadataPhase
	StateDataPhase
	StateFinalized
	StateFailed
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateRootRead:      "root-read",
	StateCommentSet:    "comment-set",
	StateMetadataPhase: "metadata-phase",
	StateDataPhase:     "data-phase",
	StateFinalized:     "finalized",
	StateFailed:        "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Option configures a Creator.
type Option func(*Creator)

// WithMetadataFirst controls whether every descriptor is written before any
// payload entry. It is on by default.
func WithMetadataFirst(enabled bool) Option {
	return func(c *Creator) { c.metadataFirst = enabled }
}

// WithLogger sets the logger for progress and skip diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Creator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Creator writes one container from one hierarchy. It is single use.
type Creator struct {
	writer        *archive.Writer
	hierarchy     *hierarchy.Hierarchy
	metadataFirst bool
	logger        logrus.FieldLogger
	state         State
}

// NewCreator prepares a container on out for the hierarchy h. Nothing is
// written until Create.
func NewCreator(out io.Writer, h *hierarchy.Hierarchy, opts ...Option) *Creator {
	c := &Creator{
		writer:        archive.NewWriter(out),
		hierarchy:     h,
		metadataFirst: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}
	return c
}

// State returns how far Create got.
func (c *Creator) State() State {
	return c.state
}

// Create writes the container: comment, then descriptors when metadata-first
// is enabled, then every remaining file and directory, then the trailer.
//
// Errors reading the root descriptor abort before any byte is written.
// Descriptor walk errors and container errors abort the whole operation;
// unreadable payload files are skipped with a warning.
func (c *Creator) Create() (archive.Summary, error) {
	if c.state != StateIdle {
		return archive.Summary{}, ErrAlreadyCreated
	}
	summary, err := c.create()
	if err != nil {
		c.state = StateFailed
		return archive.Summary{}, err
	}
	return summary, nil
}

func (c *Creator) create() (archive.Summary, error) {
	log := c.logger.WithField("action", "create")

	root, err := c.hierarchy.RootMetadata()
	if err != nil {
		return archive.Summary{}, fmt.Errorf("create: %w", err)
	}
	version, ok := root.FormatVersion()
	if !ok {
		return archive.Summary{}, fmt.Errorf("create: %w", ErrMissingRootVersion)
	}
	c.state = StateRootRead
	log.WithField("version", version).Debug("read root metadata")

	if err := c.writer.SetComment(zarr.NewComment(version, c.metadataFirst)); err != nil {
		return archive.Summary{}, fmt.Errorf("create: %w", err)
	}
	c.state = StateCommentSet

	if c.metadataFirst {
		c.state = StateMetadataPhase
		n, err := c.writeMetadata()
		if err != nil {
			return archive.Summary{}, fmt.Errorf("create: %w", err)
		}
		log.WithField("descriptors", n).Info("wrote metadata")
	}

	c.state = StateDataPhase
	stats, err := c.writeData()
	if err != nil {
		return archive.Summary{}, fmt.Errorf("create: %w", err)
	}
	log.WithFields(logrus.Fields{
		"files":       stats.Files,
		"directories": stats.Directories,
		"skipped":     stats.Skipped,
	}).Info("wrote data")

	summary, err := c.writer.Finalize()
	if err != nil {
		return archive.Summary{}, fmt.Errorf("create: %w", err)
	}
	c.state = StateFinalized
	return summary, nil
}

func (c *Creator) writeMetadata() (int, error) {
	walker := c.hierarchy.WalkMetadata()
	n := 0
	for {
		d, err := walker.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if _, err := c.writer.AddFile(d.Path, bytes.NewReader(d.Data), modTime(d.Info)); err != nil {
			return n, err
		}
		n++
	}
}

func (c *Creator) writeData() (hierarchy.WalkStats, error) {
	walker := c.hierarchy.WalkData(c.metadataFirst)
	for {
		item, err := walker.Next()
		if err == io.EOF {
			return walker.Stats(), nil
		}
		if err != nil {
			return walker.Stats(), err
		}
		if item.IsDir() {
			if err := c.writer.AddDirectory(item.Path, modTime(item.Info)); err != nil {
				return walker.Stats(), err
			}
			continue
		}
		if err := c.writeFile(item); err != nil {
			return walker.Stats(), err
		}
	}
}

// writeFile streams one payload file and always closes it.
func (c *Creator) writeFile(item hierarchy.Item) error {
	var result *multierror.Error
	if _, err := c.writer.AddFile(item.Path, item.File, modTime(item.Info)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := item.File.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close %q: %w", item.Path, err))
	}
	if result != nil {
		result.ErrorFormat = FormatErrors
	}
	return result.ErrorOrNil()
}

// FormatErrors renders a multierror list on a single line.
func FormatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func modTime(info os.FileInfo) time.Time {
	if info == nil {
		return time.Time{}
	}
	return info.ModTime()
}
