package model

import (
	"fmt"
	"math"
	"slices"
)

// Waveform is one named time series from a capture file. TimeOffsets and
// Values always have the same length.
type Waveform struct {
	ID     *int64
	Name   string
	Series []Series

	timeOffsets []float64
	values      []float64
}

// NewWaveform creates a waveform, rejecting sequences of unequal length.
func NewWaveform(name string, timeOffsets, values []float64) (*Waveform, error) {
	w := &Waveform{Name: name}
	if err := w.UpdateData(timeOffsets, values); err != nil {
		return nil, err
	}
	return w, nil
}

// NewWaveformStub creates a data-less waveform, typically restored from the database.
func NewWaveformStub(id *int64, name string) *Waveform {
	return &Waveform{ID: id, Name: name, timeOffsets: []float64{}, values: []float64{}}
}

// UpdateData replaces the sample data in place.
func (w *Waveform) UpdateData(timeOffsets, values []float64) error {
	if len(timeOffsets) != len(values) {
		return fmt.Errorf("waveform %s: %d time offsets but %d values: %w",
			w.Name, len(timeOffsets), len(values), ErrLogic)
	}
	if timeOffsets == nil {
		timeOffsets = []float64{}
	}
	if values == nil {
		values = []float64{}
	}
	w.timeOffsets = timeOffsets
	w.values = values
	return nil
}

// TimeOffsets returns the sample times in seconds relative to the trigger.
func (w *Waveform) TimeOffsets() []float64 { return w.timeOffsets }

// Values returns the sample values.
func (w *Waveform) Values() []float64 { return w.values }

// Len returns the number of samples.
func (w *Waveform) Len() int { return len(w.values) }

// AddSeries tags the waveform with series it belongs to. Series already
// present (by name) are skipped.
func (w *Waveform) AddSeries(series ...Series) {
	for _, s := range series {
		if !w.InSeries(s.Name) {
			w.Series = append(w.Series, s)
		}
	}
}

// InSeries reports whether the waveform is tagged with the named series.
func (w *Waveform) InSeries(name string) bool {
	return slices.ContainsFunc(w.Series, func(s Series) bool { return s.Name == name })
}

// ValueAt returns the value of the sample with the greatest time offset that is
// <= t. Offsets must be ascending. NaN is returned when t is outside the
// sampled range.
func (w *Waveform) ValueAt(t float64) float64 {
	i := floorIndex(w.timeOffsets, t)
	if i < 0 {
		return math.NaN()
	}
	return w.values[i]
}

// floorIndex returns the index of the greatest element <= x in the ascending
// slice arr, or -1 if x lies outside [arr[0], arr[len-1]].
func floorIndex(arr []float64, x float64) int {
	if len(arr) == 0 || math.IsNaN(x) {
		return -1
	}
	low, high := 0, len(arr)-1
	for {
		switch {
		case x > arr[high]:
			return -1
		case x == arr[high]:
			return high
		case x < arr[low]:
			return -1
		case x == arr[low]:
			return low
		case low+1 >= high:
			return low
		}

		mid := (low + high) / 2
		switch {
		case x == arr[mid]:
			return mid
		case x > arr[mid]:
			low = mid
		default:
			high = mid
		}
	}
}
