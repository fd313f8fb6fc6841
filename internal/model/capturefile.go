package model

// SampleSummary describes the time column of a capture file.
type SampleSummary struct {
	Start float64
	End   float64
	Step  float64
}

// summaryEqual compares two summaries with exact float equality. Two absent
// summaries are equal.
func summaryEqual(a, b *SampleSummary) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Start == b.Start && a.End == b.End && a.Step == b.Step
}

// CaptureFile is one harvester output file: an optional metadata header and a
// set of waveforms sharing a time column.
type CaptureFile struct {
	ID       *int64
	Filename string
	Metadata []Metadata
	Summary  *SampleSummary

	waveforms sortedMap[*Waveform]
}

// NewCaptureFile creates an empty capture file.
func NewCaptureFile(id *int64, filename string, summary *SampleSummary) *CaptureFile {
	return &CaptureFile{ID: id, Filename: filename, Summary: summary}
}

// AddWaveform adds w, replacing any waveform with the same name.
func (cf *CaptureFile) AddWaveform(w *Waveform) {
	cf.waveforms.put(w.Name, w)
}

// Waveform returns the named waveform.
func (cf *CaptureFile) Waveform(name string) (*Waveform, bool) {
	return cf.waveforms.get(name)
}

// HasWaveform reports whether a waveform with that name exists.
func (cf *CaptureFile) HasWaveform(name string) bool {
	_, ok := cf.waveforms.get(name)
	return ok
}

// Waveforms returns the waveforms ordered by name.
func (cf *CaptureFile) Waveforms() []*Waveform {
	return cf.waveforms.list()
}

// WaveformNames returns the waveform names in order.
func (cf *CaptureFile) WaveformNames() []string {
	return cf.waveforms.sortedKeys()
}

// AddMetadata appends metadata entries.
func (cf *CaptureFile) AddMetadata(m ...Metadata) {
	cf.Metadata = append(cf.Metadata, m...)
}

// merge folds a freshly parsed copy of the same file into cf. Existing
// waveforms keep their identity and have their data replaced.
func (cf *CaptureFile) merge(parsed *CaptureFile) error {
	for _, w := range parsed.Waveforms() {
		if existing, ok := cf.waveforms.get(w.Name); ok {
			if err := existing.UpdateData(w.TimeOffsets(), w.Values()); err != nil {
				return err
			}
			continue
		}
		cf.AddWaveform(w)
	}
	if parsed.Summary != nil {
		cf.Summary = parsed.Summary
	}
	if len(parsed.Metadata) > 0 {
		cf.Metadata = parsed.Metadata
	}
	return nil
}
