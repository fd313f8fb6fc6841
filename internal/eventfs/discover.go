package eventfs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/jlab/wfbrowser/internal/metrics"
	"github.com/jlab/wfbrowser/internal/model"
)

// captureFileMarker identifies harvester output files.
const captureFileMarker = ".txt"

// Discoverer finds the capture files that belong to an event.
type Discoverer struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewDiscoverer returns a discoverer. A nil logger uses slog.Default().
func NewDiscoverer(r *Resolver, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{resolver: r, logger: logger}
}

// Discover lists the event's capture files from its directory or, if the
// directory is gone, from its archive. Names are sorted and only the earliest
// file of each device is kept.
func (d *Discoverer) Discover(e *model.Event) ([]string, error) {
	names, err := d.candidates(e)
	if err != nil {
		return nil, err
	}

	kept, skipped := dedupeByDevice(names)
	for _, name := range skipped {
		d.logger.Warn("ignoring duplicate harvester file",
			slog.String("file", name),
			slog.String("device", deviceID(name)),
			slog.String("event", e.String()))
		metrics.DuplicateFilesSkipped.Inc()
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("no capture files found for %s: %w", e, model.ErrDataNotFound)
	}
	return kept, nil
}

func (d *Discoverer) candidates(e *model.Event) ([]string, error) {
	dir := d.resolver.EventDir(e)
	ok, err := exists(dir)
	if err != nil {
		return nil, err
	}
	if ok {
		d.logger.Debug("listing event directory", slog.String("path", dir))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading event directory: %w", err)
		}
		var names []string
		for _, entry := range entries {
			if strings.Contains(entry.Name(), captureFileMarker) {
				names = append(names, entry.Name())
			}
		}
		return names, nil
	}

	archive, err := d.resolver.ArchivePath(e, "")
	if err != nil {
		return nil, err
	}
	ok, err = exists(archive)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("neither %s nor %s exists: %w", dir, archive, model.ErrDataNotFound)
	}

	d.logger.Debug("scanning event archive", slog.String("path", archive))
	var names []string
	err = walkArchive(archive, e.Grouped, func(name string, _ io.Reader) error {
		if strings.Contains(name, captureFileMarker) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// dedupeByDevice sorts names and keeps the first name per device id.
// Filenames look like <deviceId>.<timestamp>.txt, so lexical order is
// chronological within a device.
func dedupeByDevice(names []string) (kept, skipped []string) {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	lastDevice := ""
	for i, name := range sorted {
		dev := deviceID(name)
		if i > 0 && dev == lastDevice {
			skipped = append(skipped, name)
			continue
		}
		kept = append(kept, name)
		lastDevice = dev
	}
	return kept, skipped
}

func deviceID(filename string) string {
	dev, _, _ := strings.Cut(filename, ".")
	return dev
}
