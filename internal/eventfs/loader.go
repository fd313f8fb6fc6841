package eventfs

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/jlab/wfbrowser/internal/captureparser"
	"github.com/jlab/wfbrowser/internal/metrics"
	"github.com/jlab/wfbrowser/internal/model"
)

// Loader builds events from disk and (re)loads their waveform data.
type Loader struct {
	resolver   *Resolver
	discoverer *Discoverer
	logger     *slog.Logger
}

// NewLoader returns a loader. A nil logger uses slog.Default().
func NewLoader(r *Resolver, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		resolver:   r,
		discoverer: NewDiscoverer(r, logger),
		logger:     logger,
	}
}

// Resolver returns the path resolver used by the loader.
func (l *Loader) Resolver() *Resolver {
	return l.resolver
}

// Discoverer returns the capture-file discoverer used by the loader.
func (l *Loader) Discoverer() *Discoverer {
	return l.discoverer
}

// NewEvent creates an event from its identity and parses all of its capture
// files with data. Ungrouped events name their single capture file; grouped
// events find theirs on disk. Nothing is returned unless every file parsed.
func (l *Loader) NewEvent(p model.EventParams, captureFile string) (*model.Event, error) {
	e, err := l.newEvent(p, captureFile)
	if err != nil {
		metrics.LoadFailures.WithLabelValues(model.ErrorKind(err)).Inc()
		return nil, err
	}
	return e, nil
}

func (l *Loader) newEvent(p model.EventParams, captureFile string) (*model.Event, error) {
	e, err := model.NewEvent(p)
	if err != nil {
		return nil, err
	}

	var files []string
	if p.Grouped {
		files, err = l.discoverer.Discover(e)
		if err != nil {
			return nil, err
		}
	} else {
		if captureFile == "" {
			return nil, fmt.Errorf("ungrouped events need exactly one capture file: %w", model.ErrProtocolViolation)
		}
		files = []string{captureFile}
	}

	if err := l.loadFiles(e, files, true); err != nil {
		return nil, err
	}
	return e, nil
}

// Load parses the event's known capture files and merges the result into
// e. Existing waveforms are updated in place. On error e is left unchanged.
func (l *Loader) Load(e *model.Event, includeData bool) error {
	files := e.CaptureFileNames()
	if len(files) == 0 {
		err := fmt.Errorf("%s has no capture files: %w", e, model.ErrDataNotFound)
		metrics.LoadFailures.WithLabelValues(model.ErrorKind(err)).Inc()
		return err
	}
	if err := l.loadFiles(e, files, includeData); err != nil {
		metrics.LoadFailures.WithLabelValues(model.ErrorKind(err)).Inc()
		return err
	}
	return nil
}

func (l *Loader) loadFiles(e *model.Event, files []string, includeData bool) error {
	onDisk, err := l.resolver.DataOnDisk(e, files)
	if err != nil {
		return err
	}
	if !onDisk {
		return fmt.Errorf("could not locate data for %s: %w", e, model.ErrDataNotFound)
	}

	dir := l.resolver.EventDir(e)
	archive, err := l.resolver.archiveFor(e, files)
	if err != nil {
		return err
	}

	// Ungrouped events share the day directory, so the file itself has to exist.
	local := dir
	if !e.Grouped {
		local = filepath.Join(dir, files[0])
	}
	useDir, err := exists(local)
	if err != nil {
		return err
	}

	var staged []*model.CaptureFile
	if useDir {
		l.logger.Debug("loading capture files from directory",
			slog.String("path", dir), slog.String("event", e.String()))
		staged, err = parseFromDir(dir, files, includeData)
	} else {
		l.logger.Debug("loading capture files from archive",
			slog.String("path", archive), slog.String("event", e.String()))
		staged, err = parseFromArchive(archive, e.Grouped, files, includeData)
	}
	if err != nil {
		return err
	}

	for _, cf := range staged {
		if err := e.MergeCaptureFile(cf); err != nil {
			return err
		}
	}
	return nil
}

func parseFromDir(dir string, files []string, includeData bool) ([]*model.CaptureFile, error) {
	staged := make([]*model.CaptureFile, 0, len(files))
	for _, name := range files {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("opening capture file %s: %v: %w", name, err, model.ErrDataNotFound)
		}
		cf, err := captureparser.Parse(f, name, includeData)
		f.Close()
		if err != nil {
			return nil, err
		}
		metrics.CaptureFilesParsed.WithLabelValues(metrics.SourceDir).Inc()
		staged = append(staged, cf)
	}
	return staged, nil
}

func parseFromArchive(archive string, grouped bool, files []string, includeData bool) ([]*model.CaptureFile, error) {
	required := make(map[string]bool, len(files))
	for _, name := range files {
		required[name] = false
	}

	var staged []*model.CaptureFile
	err := walkArchive(archive, grouped, func(name string, r io.Reader) error {
		found, ok := required[name]
		if !ok || found {
			return nil
		}
		cf, err := captureparser.Parse(r, name, includeData)
		if err != nil {
			return err
		}
		metrics.CaptureFilesParsed.WithLabelValues(metrics.SourceArchive).Inc()
		required[name] = true
		staged = append(staged, cf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var missing []string
	for name, found := range required {
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("files not found in archive %s: %s: %w",
			archive, strings.Join(missing, ","), model.ErrDataNotFound)
	}
	return staged, nil
}

// StreamArchive writes the event's data as a gzip+tar archive. An existing
// archive is copied as is; otherwise one is built from the event directory
// with a single directory entry followed by the capture files.
func (l *Loader) StreamArchive(w io.Writer, e *model.Event) error {
	files := e.CaptureFileNames()
	onDisk, err := l.resolver.DataOnDisk(e, files)
	if err != nil {
		return err
	}
	if !onDisk {
		return fmt.Errorf("could not locate data for %s: %w", e, model.ErrDataNotFound)
	}

	archive, err := l.resolver.archiveFor(e, files)
	if err != nil {
		return err
	}
	if ok, err := exists(archive); err != nil {
		return err
	} else if ok {
		f, err := os.Open(archive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("copying archive: %w", err)
		}
		return nil
	}

	return writeArchive(w, l.resolver.EventDir(e), files)
}

func writeArchive(w io.Writer, dir string, files []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat event directory: %w", err)
	}
	dirName := filepath.Base(dir)
	hdr, err := tar.FileInfoHeader(dirInfo, "")
	if err != nil {
		return fmt.Errorf("building header for %s: %w", dir, err)
	}
	hdr.Name = dirName + "/"
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing directory entry: %w", err)
	}

	for _, name := range files {
		if err := addFile(tw, filepath.Join(dir, name), dirName+"/"+name); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening capture file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat capture file: %w", err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("building header for %s: %w", src, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
