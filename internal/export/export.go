// Package export renders events for downstream consumers: CSV tables of
// waveform data and JSON documents for the data API and the chart widgets.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jlab/wfbrowser/internal/metrics"
	"github.com/jlab/wfbrowser/internal/model"
)

// Table builds the event's waveform table and records which path was used.
func Table(e *model.Event, seriesNames []string) (*model.Table, error) {
	t, err := e.WaveformTable(seriesNames)
	if err != nil {
		return nil, err
	}
	metrics.TablesBuilt.WithLabelValues(metrics.TablePath(t.Consistent)).Inc()
	return t, nil
}

// WriteCSV writes the table header followed by one line per row.
// Missing samples are written as NaN.
func WriteCSV(w io.Writer, t *model.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for j := range record {
			if j < len(row) {
				record[j] = formatFloat(row[j])
			} else {
				record[j] = formatFloat(math.NaN())
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// EventCSV writes the waveform table of e as CSV.
func EventCSV(w io.Writer, e *model.Event, seriesNames []string) error {
	t, err := Table(e, seriesNames)
	if err != nil {
		return err
	}
	return WriteCSV(w, t)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// number is a float that encodes NaN as JSON null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func numbers(vals []float64) []number {
	out := make([]number, len(vals))
	for i, v := range vals {
		out[i] = number(v)
	}
	return out
}

type eventJSON struct {
	ID             int64             `json:"id"`
	DatetimeUTC    string            `json:"datetime_utc"`
	Location       string            `json:"location"`
	System         string            `json:"system"`
	Archive        bool              `json:"archive"`
	Classification string            `json:"classification"`
	CaptureFiles   []captureFileJSON `json:"captureFiles"`
	Labels         []labelJSON       `json:"labels"`
}

type captureFileJSON struct {
	Filename    string         `json:"filename"`
	SampleStart *float64       `json:"sample_start"`
	SampleEnd   *float64       `json:"sample_end"`
	SampleStep  *float64       `json:"sample_step"`
	Metadata    []metadataJSON `json:"metadata"`
	Waveforms   []waveformJSON `json:"waveforms"`
}

type metadataJSON struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	ID     *int64   `json:"id"`
	Value  *string  `json:"value"`
	Offset *float64 `json:"offset"`
	Start  *float64 `json:"start"`
}

type waveformJSON struct {
	WaveformName string         `json:"waveformName"`
	Series       []model.Series `json:"series"`
	TimeOffsets  []number       `json:"timeOffsets"`
	Values       []number       `json:"values"`
}

type labelJSON struct {
	ID         *int64   `json:"id"`
	TimeUTC    *string  `json:"label-time_utc"`
	Name       string   `json:"name"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence"`
	ModelName  string   `json:"model-name"`
}

// EventJSON renders a persisted event with its capture files, metadata and
// waveforms. Only waveforms in one of the named series are included unless
// seriesNames is empty.
func EventJSON(e *model.Event, seriesNames []string) ([]byte, error) {
	if e.ID == nil {
		return nil, fmt.Errorf("cannot export %s without a database id: %w", e, model.ErrIntegrity)
	}

	out := eventJSON{
		ID:             *e.ID,
		DatetimeUTC:    e.TimeString(time.UTC),
		Location:       e.Location,
		System:         e.System,
		Archive:        e.Archive,
		Classification: e.Classification,
		CaptureFiles:   []captureFileJSON{},
	}
	for _, cf := range e.CaptureFiles() {
		out.CaptureFiles = append(out.CaptureFiles, captureFileToJSON(cf, seriesNames))
	}
	if e.Labels != nil {
		out.Labels = make([]labelJSON, 0, len(e.Labels))
		for _, l := range e.Labels {
			out.Labels = append(out.Labels, labelToJSON(l))
		}
	}
	return json.Marshal(out)
}

func captureFileToJSON(cf *model.CaptureFile, seriesNames []string) captureFileJSON {
	out := captureFileJSON{
		Filename:  cf.Filename,
		Metadata:  []metadataJSON{},
		Waveforms: []waveformJSON{},
	}
	if s := cf.Summary; s != nil {
		out.SampleStart, out.SampleEnd, out.SampleStep = &s.Start, &s.End, &s.Step
	}
	for _, md := range cf.Metadata {
		out.Metadata = append(out.Metadata, metadataToJSON(md))
	}
	for _, w := range cf.Waveforms() {
		if !inAnySeries(w, seriesNames) {
			continue
		}
		series := w.Series
		if series == nil {
			series = []model.Series{}
		}
		out.Waveforms = append(out.Waveforms, waveformJSON{
			WaveformName: w.Name,
			Series:       series,
			TimeOffsets:  numbers(w.TimeOffsets()),
			Values:       numbers(w.Values()),
		})
	}
	return out
}

func inAnySeries(w *model.Waveform, seriesNames []string) bool {
	if len(seriesNames) == 0 {
		return true
	}
	for _, name := range seriesNames {
		if w.InSeries(name) {
			return true
		}
	}
	return false
}

func metadataToJSON(md model.Metadata) metadataJSON {
	out := metadataJSON{Name: md.Name, Type: md.Kind().String(), ID: md.ID}
	switch v := md.Value.(type) {
	case model.NumberValue:
		s := strconv.FormatFloat(v.Value, 'g', -1, 64)
		out.Value, out.Offset, out.Start = &s, &v.Offset, &v.Start
	case model.StringValue:
		s := v.Value
		out.Value, out.Offset, out.Start = &s, &v.Offset, &v.Start
	case model.UnavailableValue:
		out.Offset = &v.Offset
	case model.UnarchivedValue:
	}
	return out
}

func labelToJSON(l model.Label) labelJSON {
	out := labelJSON{
		ID:         l.ID,
		Name:       l.Name,
		Value:      l.Value,
		Confidence: l.Confidence,
		ModelName:  l.ModelName,
	}
	if l.Time != nil {
		s := l.Time.UTC().Format("2006-01-02 15:04:05.0")
		out.TimeUTC = &s
	}
	return out
}

type chartJSON struct {
	ID          int64               `json:"id"`
	DatetimeUTC string              `json:"datetime_utc"`
	Location    string              `json:"location"`
	System      string              `json:"system"`
	Archive     bool                `json:"archive"`
	TimeOffsets []number            `json:"timeOffsets"`
	Waveforms   []chartWaveformJSON `json:"waveforms"`
}

type chartWaveformJSON struct {
	WaveformName string         `json:"waveformName"`
	Series       []model.Series `json:"series"`
	DataPoints   []number       `json:"dataPoints"`
}

// ChartJSON renders the event's waveform table column-wise for plotting. Cells
// with no sample are null.
func ChartJSON(e *model.Event, seriesNames []string) ([]byte, error) {
	if e.ID == nil {
		return nil, fmt.Errorf("cannot export %s without a database id: %w", e, model.ErrIntegrity)
	}
	t, err := Table(e, seriesNames)
	if err != nil {
		return nil, err
	}
	waveforms := e.WaveformsForSeries(seriesNames)

	out := chartJSON{
		ID:          *e.ID,
		DatetimeUTC: e.TimeString(time.UTC),
		Location:    e.Location,
		System:      e.System,
		Archive:     e.Archive,
		TimeOffsets: make([]number, len(t.Rows)),
		Waveforms:   make([]chartWaveformJSON, 0, len(waveforms)),
	}
	for i, row := range t.Rows {
		out.TimeOffsets[i] = number(row[0])
	}
	for j, w := range waveforms {
		points := make([]number, len(t.Rows))
		for i, row := range t.Rows {
			points[i] = number(row[j+1])
		}
		series := w.Series
		if series == nil {
			series = []model.Series{}
		}
		out.Waveforms = append(out.Waveforms, chartWaveformJSON{
			WaveformName: w.Name,
			Series:       series,
			DataPoints:   points,
		})
	}
	return json.Marshal(out)
}
