package eventfs

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/klauspost/compress/gzip"

	"github.com/jlab/wfbrowser/internal/model"
)

// walkArchive makes one forward pass over the gzip+tar archive at archivePath
// and calls visit with the base name and contents of every file member.
// Grouped archives must open with their one top-level directory; a file
// before it or any further directory entry is a protocol violation.
func walkArchive(archivePath string, grouped bool, visit func(name string, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip header of %s: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	foundParentDir := !grouped
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", archivePath, err)
		}

		if hdr.FileInfo().IsDir() {
			if foundParentDir {
				return fmt.Errorf("unexpected directory %s in %s: %w", hdr.Name, archivePath, model.ErrProtocolViolation)
			}
			foundParentDir = true
			continue
		}
		if !foundParentDir {
			return fmt.Errorf("file %s precedes the event directory in %s: %w", hdr.Name, archivePath, model.ErrProtocolViolation)
		}
		if err := visit(path.Base(hdr.Name), tr); err != nil {
			return err
		}
	}
}
