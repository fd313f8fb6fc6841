package model

import (
	"fmt"
	"math"
	"slices"
)

// TimeColumn is the header of the first table column.
const TimeColumn = "time_offset"

// Table is an event's waveforms laid out as rows of
// [time offset, value of waveform 1, value of waveform 2, ...].
// Missing samples are NaN.
type Table struct {
	Header     []string
	Rows       [][]float64
	Consistent bool // rows come from one shared time axis
}

// WaveformTable builds a table from the waveforms in the named series (all
// waveforms when seriesNames is empty). Consistent events share the first
// waveform's time axis. Otherwise one row is produced per distinct time offset
// and each waveform fills only the rows it has a sample for.
func (e *Event) WaveformTable(seriesNames []string) (*Table, error) {
	waveforms := e.WaveformsForSeries(seriesNames)
	if len(waveforms) == 0 {
		return nil, fmt.Errorf("no matching data for series %v: %w", seriesNames, ErrLogic)
	}

	header := make([]string, 0, len(waveforms)+1)
	header = append(header, TimeColumn)
	for _, w := range waveforms {
		header = append(header, w.Name)
	}

	var rows [][]float64
	if e.Consistent() {
		rows = denseRows(waveforms)
	} else {
		rows = sparseRows(waveforms)
	}
	return &Table{Header: header, Rows: rows, Consistent: e.Consistent()}, nil
}

func denseRows(waveforms []*Waveform) [][]float64 {
	axis := waveforms[0].TimeOffsets()
	rows := make([][]float64, len(axis))
	for i, t := range axis {
		row := make([]float64, len(waveforms)+1)
		row[0] = t
		for j, w := range waveforms {
			vals := w.Values()
			if i < len(vals) {
				row[j+1] = vals[i]
			} else {
				row[j+1] = math.NaN()
			}
		}
		rows[i] = row
	}
	return rows
}

func sparseRows(waveforms []*Waveform) [][]float64 {
	var axis []float64
	for _, w := range waveforms {
		for _, t := range w.TimeOffsets() {
			if !math.IsNaN(t) {
				axis = append(axis, t)
			}
		}
	}
	slices.Sort(axis)
	axis = slices.Compact(axis)

	rows := make([][]float64, len(axis))
	for i, t := range axis {
		row := make([]float64, len(waveforms)+1)
		row[0] = t
		for j := range waveforms {
			row[j+1] = math.NaN()
		}
		rows[i] = row
	}
	for j, w := range waveforms {
		vals := w.Values()
		for k, t := range w.TimeOffsets() {
			if math.IsNaN(t) {
				continue
			}
			if i, ok := slices.BinarySearch(axis, t); ok {
				rows[i][j+1] = vals[k]
			}
		}
	}
	return rows
}
