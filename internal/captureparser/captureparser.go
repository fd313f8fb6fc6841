// Package captureparser reads harvester capture files: a run of "#" metadata
// lines, a whitespace-delimited header row naming the time column and each
// waveform, then one row of samples per time offset.
package captureparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jlab/wfbrowser/internal/model"
)

// initialRows is the starting capacity of each column buffer.
const initialRows = 8192

// Parse reads one capture file. With includeData false only the header is
// read and every waveform is created empty. Any malformed line aborts the parse.
func Parse(r io.Reader, filename string, includeData bool) (*model.CaptureFile, error) {
	lr := &lineReader{r: bufio.NewReader(r)}

	cf := model.NewCaptureFile(nil, filename, nil)

	var header string
	found := false
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		if !ok {
			break
		}
		if !strings.HasPrefix(line, "#") {
			header = line
			found = true
			break
		}
		md, err := ParseMetadataLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, lr.num, err)
		}
		cf.AddMetadata(md)
	}
	if !found {
		return cf, nil
	}

	names := strings.Fields(header)
	if len(names) == 0 {
		return nil, fmt.Errorf("%s line %d: empty header row: %w", filename, lr.num, model.ErrMalformedInput)
	}

	columns := make([][]float64, len(names))
	if includeData {
		for j := range columns {
			columns[j] = make([]float64, 0, initialRows)
		}
		for {
			line, ok, err := lr.next()
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", filename, err)
			}
			if !ok {
				break
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := appendRow(columns, line); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", filename, lr.num, err)
			}
		}
		for j, col := range columns {
			exact := make([]float64, len(col))
			copy(exact, col)
			columns[j] = exact
		}
		cf.Summary = summarize(columns[0])
	}

	for j := 1; j < len(names); j++ {
		w, err := model.NewWaveform(names[j], columns[0], columns[j])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		cf.AddWaveform(w)
	}
	return cf, nil
}

// ParseFile opens path and parses it, naming the capture file after the
// last path element.
func ParseFile(path string, includeData bool) (*model.CaptureFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	return Parse(f, info.Name(), includeData)
}

// lineReader yields lines of any length without their line terminator.
type lineReader struct {
	r   *bufio.Reader
	num int
}

// next returns the next line, or ok false at end of input.
func (lr *lineReader) next() (line string, ok bool, err error) {
	line, err = lr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if err != nil && line == "" {
		return "", false, nil
	}
	lr.num++
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), true, nil
}

// appendRow adds one data row to the column buffers. Tab-separated rows keep
// empty cells, which become NaN, as do cells missing from short rows.
func appendRow(columns [][]float64, line string) error {
	var tokens []string
	if strings.Contains(line, "\t") {
		tokens = strings.Split(line, "\t")
	} else {
		tokens = strings.Fields(line)
	}

	for j := range columns {
		v := math.NaN()
		if j < len(tokens) {
			tok := strings.TrimSpace(tokens[j])
			if tok != "" {
				var err error
				v, err = strconv.ParseFloat(tok, 64)
				if err != nil {
					return fmt.Errorf("bad sample %q: %w", tok, model.ErrMalformedInput)
				}
			}
		}
		columns[j] = append(columns[j], v)
	}
	return nil
}

func summarize(offsets []float64) *model.SampleSummary {
	if len(offsets) == 0 {
		return nil
	}
	s := &model.SampleSummary{Start: offsets[0], End: offsets[len(offsets)-1]}
	if len(offsets) > 1 {
		s.Step = offsets[1] - offsets[0]
	}
	return s
}
