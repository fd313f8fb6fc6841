// Package eventfs locates and reads the capture files of an event on disk,
// either in the event directory or in its gzip+tar archive.
package eventfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jlab/wfbrowser/internal/model"
)

const archiveSuffix = ".tar.gz"

// Resolver maps event identity to paths under the data directory.
type Resolver struct {
	dataDir string
	loc     *time.Location
}

// NewResolver returns a resolver rooted at dataDir. Directory names are
// formatted in loc (time.Local when nil).
func NewResolver(dataDir string, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{dataDir: dataDir, loc: loc}
}

// DataDir returns the base data directory.
func (r *Resolver) DataDir() string {
	return r.dataDir
}

// EventDir returns dataDir/system/location/classification/day, plus a
// time-of-day directory for grouped events. Ungrouped events share the day
// directory with other events.
func (r *Resolver) EventDir(e *model.Event) string {
	t := e.Time.In(r.loc)
	dir := filepath.Join(r.dataDir, e.System, e.Location, e.Classification, t.Format("2006_01_02"))
	if e.Grouped {
		dir = filepath.Join(dir, t.Format("150405.0"))
	}
	return dir
}

// ArchivePath returns where the event's compressed archive would live. For
// ungrouped events the capture filename is part of the path; when captureFile
// is empty the event's single capture file is used.
func (r *Resolver) ArchivePath(e *model.Event, captureFile string) (string, error) {
	if e.Grouped {
		return r.EventDir(e) + archiveSuffix, nil
	}
	if captureFile == "" {
		names := e.CaptureFileNames()
		if len(names) != 1 {
			return "", fmt.Errorf("ungrouped event has %d capture files, cannot resolve archive: %w",
				len(names), model.ErrProtocolViolation)
		}
		captureFile = names[0]
	}
	return filepath.Join(r.EventDir(e), captureFile+archiveSuffix), nil
}

// DataOnDisk reports whether the archive exists, or failing that whether the
// event directory holds every named file. The archive contents are not checked.
func (r *Resolver) DataOnDisk(e *model.Event, files []string) (bool, error) {
	archive, err := r.archiveFor(e, files)
	if err != nil {
		return false, err
	}
	if ok, err := exists(archive); err != nil || ok {
		return ok, err
	}

	dir := r.EventDir(e)
	if ok, err := exists(dir); err != nil || !ok {
		return false, err
	}
	for _, f := range files {
		ok, err := exists(filepath.Join(dir, f))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (r *Resolver) archiveFor(e *model.Event, files []string) (string, error) {
	if e.Grouped {
		return r.ArchivePath(e, "")
	}
	if len(files) != 1 {
		return "", fmt.Errorf("ungrouped event needs exactly one capture file, got %d: %w",
			len(files), model.ErrProtocolViolation)
	}
	return r.ArchivePath(e, files[0])
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}
