package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odvcencio/ozx/pkg/archive"
	"github.com/odvcencio/ozx/pkg/hierarchy"
	"github.com/odvcencio/ozx/pkg/ozx"
)

const (
	stdioArchive     = "-"
	archiveExtension = ".ozx"
)

func newCreateCmd(g *globalFlags) *cobra.Command {
	var force bool
	var noSortMetadata bool

	cmd := &cobra.Command{
		Use:   "create ARCHIVE ROOT",
		Short: "Create a new .ozx archive from a local zarr hierarchy",
		Long: `Create a new .ozx archive from a local zarr hierarchy.

ARCHIVE is the container to write. It should end with .ozx and must not exist
unless --force is given; "-" writes to stdout. ROOT is the root of the zarr
hierarchy and must contain a zarr.json carrying attributes.ome.version.

By default every zarr.json is written first, in breadth-first order, so that
readers can load the hierarchy metadata from the front of the central
directory. --no-sort-metadata disables that ordering.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, rootPath := args[0], args[1]

			cfg, err := g.settings(cmd.Flags())
			if err != nil {
				return err
			}
			if !flagChanged(cmd.Flags(), "force") {
				force = cfg.Force
			}
			metadataFirst := cfg.MetadataFirst
			if flagChanged(cmd.Flags(), "no-sort-metadata") {
				metadataFirst = !noSortMetadata
			}

			logger, err := g.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log := logger.WithField("action", "create")

			toStdout := archivePath == stdioArchive
			if !toStdout {
				if _, err := os.Stat(archivePath); err == nil {
					if !force {
						return fmt.Errorf("archive %s already exists: delete it or use --force", archivePath)
					}
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat archive: %w", err)
				}
				if filepath.Ext(archivePath) != archiveExtension {
					log.WithField("archive", archivePath).Warnf("archive name should end with %s", archiveExtension)
				}
			}

			h, err := hierarchy.Open(rootPath, hierarchy.WithLogger(logger))
			if err != nil {
				return err
			}
			build := func(w io.Writer) (archive.Summary, error) {
				return ozx.NewCreator(w, h,
					ozx.WithMetadataFirst(metadataFirst),
					ozx.WithLogger(logger),
				).Create()
			}

			var summary archive.Summary
			report := cmd.OutOrStdout()
			if toStdout {
				summary, err = build(cmd.OutOrStdout())
				report = cmd.ErrOrStderr()
			} else {
				summary, err = writeArchiveFile(archivePath, func(w io.Writer, tmpName string) (archive.Summary, error) {
					if h.Exclude(tmpName) {
						h.Exclude(archivePath)
						log.WithField("archive", archivePath).Warn("archive is inside the hierarchy root; leaving it out of the container")
					}
					return build(w)
				})
			}
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"archive":        archivePath,
				"root":           h.Root(),
				"metadata_first": metadataFirst,
			}).Info("archive complete")
			fmt.Fprintf(
				report,
				"created %s: %d entries (%d directories, %d files), %d bytes, blake2b-256 %s\n",
				archivePath,
				summary.Entries,
				summary.Directories,
				summary.Files,
				summary.Bytes,
				summary.Digest,
			)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing archive")
	cmd.Flags().BoolVarP(&noSortMetadata, "no-sort-metadata", "S", false, "do not write zarr.json files ahead of data")
	return cmd
}

// writeArchiveFile builds the archive in a temporary sibling of path and
// renames it into place only once build succeeds. build also receives the
// temporary file's name.
func writeArchiveFile(path string, build func(w io.Writer, tmpName string) (archive.Summary, error)) (archive.Summary, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := createSibling(dir, base)
	if err != nil {
		return archive.Summary{}, fmt.Errorf("create archive: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	summary, err := build(tmp, tmpName)
	if err != nil {
		var result *multierror.Error
		result = multierror.Append(result, err)
		if cerr := tmp.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("close tmpfile: %w", cerr))
		}
		if rerr := os.Remove(tmpName); rerr != nil {
			result = multierror.Append(result, fmt.Errorf("remove tmpfile: %w", rerr))
		}
		result.ErrorFormat = ozx.FormatErrors
		return archive.Summary{}, result.ErrorOrNil()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return archive.Summary{}, fmt.Errorf("create archive: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return archive.Summary{}, fmt.Errorf("create archive: rename: %w", err)
	}
	return summary, nil
}

// createSibling creates a hidden, uniquely named file in dir. The mode is
// 0666 less the umask, as for any other newly created file.
func createSibling(dir, base string) (*os.File, error) {
	for attempt := 0; ; attempt++ {
		name := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), time.Now().UnixNano()))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		if err == nil || !errors.Is(err, os.ErrExist) || attempt == 9 {
			return f, err
		}
	}
}
