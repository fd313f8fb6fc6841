package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// EventParams are the identity attributes of an event.
type EventParams struct {
	Time           time.Time
	Location       string // zone or cavity, e.g. "1L22"
	System         string // e.g. "rf"
	Classification string
	Grouped        bool // files share one directory or archive
	Archive        bool
	ToBeDeleted    bool
}

// Event is one harvester-triggered occurrence and the capture files it produced.
// Capture files are keyed by filename and iterate in filename order.
type Event struct {
	ID             *int64
	Time           time.Time
	Location       string
	System         string
	Classification string
	Grouped        bool
	Archive        bool
	ToBeDeleted    bool
	Labels         []Label

	captureFiles sortedMap[*CaptureFile]
	consistent   bool
}

// NewEvent creates an event that has not been persisted yet.
func NewEvent(p EventParams) (*Event, error) {
	if p.Time.IsZero() {
		return nil, fmt.Errorf("event time is required: %w", ErrMalformedInput)
	}
	return &Event{
		Time:           p.Time.Truncate(time.Microsecond),
		Location:       p.Location,
		System:         p.System,
		Classification: p.Classification,
		Grouped:        p.Grouped,
		Archive:        p.Archive,
		ToBeDeleted:    p.ToBeDeleted,
		consistent:     true,
	}, nil
}

// RestoreEvent rebuilds a persisted event. Capture files are added by the
// caller and their waveform data is loaded on demand.
func RestoreEvent(id int64, p EventParams, labels []Label) *Event {
	return &Event{
		ID:             &id,
		Time:           p.Time.Truncate(time.Microsecond),
		Location:       p.Location,
		System:         p.System,
		Classification: p.Classification,
		Grouped:        p.Grouped,
		Archive:        p.Archive,
		ToBeDeleted:    p.ToBeDeleted,
		Labels:         labels,
		consistent:     true,
	}
}

// Params returns the identity attributes of e.
func (e *Event) Params() EventParams {
	return EventParams{
		Time:           e.Time,
		Location:       e.Location,
		System:         e.System,
		Classification: e.Classification,
		Grouped:        e.Grouped,
		Archive:        e.Archive,
		ToBeDeleted:    e.ToBeDeleted,
	}
}

// AddCaptureFile adds cf, replacing any capture file with the same name.
func (e *Event) AddCaptureFile(cf *CaptureFile) {
	e.captureFiles.put(cf.Filename, cf)
	e.updateConsistency()
}

// MergeCaptureFile adds a freshly parsed capture file. If the event already
// knows the filename, its waveforms are updated in place instead of replaced.
func (e *Event) MergeCaptureFile(cf *CaptureFile) error {
	existing, ok := e.captureFiles.get(cf.Filename)
	if !ok {
		e.AddCaptureFile(cf)
		return nil
	}
	if err := existing.merge(cf); err != nil {
		return fmt.Errorf("merging %s: %w", cf.Filename, err)
	}
	e.updateConsistency()
	return nil
}

// AddWaveform adds w to the named capture file.
func (e *Event) AddWaveform(filename string, w *Waveform) error {
	cf, ok := e.captureFiles.get(filename)
	if !ok {
		return fmt.Errorf("capture file %s not in event: %w", filename, ErrLogic)
	}
	cf.AddWaveform(w)
	e.updateConsistency()
	return nil
}

// CaptureFile returns the named capture file.
func (e *Event) CaptureFile(filename string) (*CaptureFile, bool) {
	return e.captureFiles.get(filename)
}

// CaptureFiles returns the capture files in filename order.
func (e *Event) CaptureFiles() []*CaptureFile {
	return e.captureFiles.list()
}

// CaptureFileNames returns the capture filenames in order.
func (e *Event) CaptureFileNames() []string {
	return e.captureFiles.sortedKeys()
}

// NumCaptureFiles returns the number of capture files.
func (e *Event) NumCaptureFiles() int {
	return e.captureFiles.len()
}

// Consistent reports whether every capture file shares one sampling summary.
func (e *Event) Consistent() bool {
	return e.consistent
}

func (e *Event) updateConsistency() {
	files := e.captureFiles.list()
	e.consistent = true
	for i := 1; i < len(files); i++ {
		if !summaryEqual(files[0].Summary, files[i].Summary) {
			e.consistent = false
			return
		}
	}
}

// Waveforms returns every waveform of the event ordered by name. Waveforms
// with the same name in different capture files keep filename order.
func (e *Event) Waveforms() []*Waveform {
	var out []*Waveform
	for _, cf := range e.captureFiles.list() {
		out = append(out, cf.Waveforms()...)
	}
	slices.SortStableFunc(out, func(a, b *Waveform) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// WaveformsForSeries returns the waveforms tagged with at least one of the
// named series. An empty filter returns every waveform.
func (e *Event) WaveformsForSeries(seriesNames []string) []*Waveform {
	all := e.Waveforms()
	if len(seriesNames) == 0 {
		return all
	}
	out := all[:0]
	for _, w := range all {
		if slices.ContainsFunc(seriesNames, w.InSeries) {
			out = append(out, w)
		}
	}
	return out
}

// ApplySeries tags every waveform whose name matches a series pattern. Series
// bound to another system are ignored.
func (e *Event) ApplySeries(series []Series) {
	for _, s := range series {
		if s.System != "" && s.System != e.System {
			continue
		}
		for _, cf := range e.captureFiles.list() {
			for _, w := range cf.Waveforms() {
				if s.Matches(w.Name) {
					w.AddSeries(s)
				}
			}
		}
	}
}

// HasLabels reports whether the event carries at least one label.
func (e *Event) HasLabels() bool {
	return len(e.Labels) > 0
}

// TimeString formats the event time with tenths of a second in loc.
func (e *Event) TimeString(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return e.Time.In(loc).Format("2006-01-02 15:04:05.0")
}

// Equal compares identity, time, location, system, classification, archive
// flag and labels. Capture-file contents are not compared.
func (e *Event) Equal(o *Event) bool {
	if e == nil || o == nil {
		return e == o
	}
	if (e.ID == nil) != (o.ID == nil) || (e.ID != nil && *e.ID != *o.ID) {
		return false
	}
	if !e.Time.Equal(o.Time) || e.Location != o.Location || e.System != o.System ||
		e.Classification != o.Classification || e.Archive != o.Archive {
		return false
	}
	if (e.Labels == nil) != (o.Labels == nil) {
		return false
	}
	return slices.EqualFunc(e.Labels, o.Labels, Label.Equal)
}

// Compare orders events by time, then system, location, classification and
// archive flag.
func (e *Event) Compare(o *Event) int {
	if c := e.Time.Compare(o.Time); c != 0 {
		return c
	}
	if c := strings.Compare(e.System, o.System); c != 0 {
		return c
	}
	if c := strings.Compare(e.Location, o.Location); c != 0 {
		return c
	}
	if c := strings.Compare(e.Classification, o.Classification); c != 0 {
		return c
	}
	return cmp.Compare(boolInt(e.Archive), boolInt(o.Archive))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (e *Event) String() string {
	id := "nil"
	if e.ID != nil {
		id = fmt.Sprint(*e.ID)
	}
	return fmt.Sprintf("Event{id=%s time=%s system=%s location=%s classification=%s files=%d}",
		id, e.Time.Format(time.RFC3339Nano), e.System, e.Location, e.Classification, e.captureFiles.len())
}
