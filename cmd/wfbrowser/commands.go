package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jlab/wfbrowser/internal/export"
	"github.com/jlab/wfbrowser/internal/labelfilter"
	"github.com/jlab/wfbrowser/internal/labelparser"
	"github.com/jlab/wfbrowser/internal/model"
	"github.com/jlab/wfbrowser/internal/query"
)

// eventFlags are the identity flags shared by files and ingest.
type eventFlags struct {
	at             *string
	location       *string
	system         *string
	classification *string
	ungrouped      *bool
	file           *string
}

func addEventFlags(fs *flag.FlagSet) *eventFlags {
	return &eventFlags{
		at:             fs.String("time", "", "event time, e.g. \"2018-04-24 06:29:15.4\""),
		location:       fs.String("location", "", "zone or cavity"),
		system:         fs.String("system", "rf", "waveform system"),
		classification: fs.String("classification", "", "event classification"),
		ungrouped:      fs.Bool("ungrouped", false, "the event is a single file in the day directory"),
		file:           fs.String("file", "", "capture file of an ungrouped event"),
	}
}

func (f *eventFlags) params(loc *time.Location) (model.EventParams, error) {
	if *f.at == "" || *f.location == "" {
		return model.EventParams{}, errors.New("-time and -location are required")
	}
	t, err := parseTime(*f.at, loc)
	if err != nil {
		return model.EventParams{}, err
	}
	return model.EventParams{
		Time:           t,
		Location:       *f.location,
		System:         *f.system,
		Classification: *f.classification,
		Grouped:        !*f.ungrouped,
	}, nil
}

// parseTime accepts RFC 3339 or "2006-01-02 15:04:05" with optional
// fractional seconds, the latter read in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *app) files(args []string) error {
	fs := newFlagSet("files")
	ef := addEventFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := ef.params(a.cfg.Location)
	if err != nil {
		return err
	}
	e, err := model.NewEvent(p)
	if err != nil {
		return err
	}

	var names []string
	if p.Grouped {
		names, err = a.loader.Discoverer().Discover(e)
		if err != nil {
			return err
		}
	} else {
		names = []string{*ef.file}
		if ok, err := a.loader.Resolver().DataOnDisk(e, names); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%s not found for %s: %w", *ef.file, e, model.ErrDataNotFound)
		}
	}
	for _, name := range names {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func (a *app) ingest(args []string) error {
	fs := newFlagSet("ingest")
	ef := addEventFlags(fs)
	labelFile := fs.String("labels", "", "JSON-lines label file to store with the event")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := ef.params(a.cfg.Location)
	if err != nil {
		return err
	}

	e, err := a.loader.NewEvent(p, *ef.file)
	if err != nil {
		return err
	}
	if *labelFile != "" {
		res, err := labelparser.ReadFile(*labelFile)
		if err != nil {
			return fmt.Errorf("reading labels: %w", err)
		}
		e.Labels = res.Labels
	}

	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.InsertEvent(e)
	if err != nil {
		return err
	}
	a.logger.Info("Event stored.",
		slog.Int64("id", id),
		slog.String("event", e.String()),
		slog.Bool("consistent", e.Consistent()))
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *app) export(args []string) error {
	fs := newFlagSet("export")
	id := fs.Int64("id", 0, "event id")
	series := fs.String("series", "", "comma-separated series names; empty for all waveforms")
	format := fs.String("format", "csv", "csv|json|chart|archive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.GetEvent(*id)
	if err != nil {
		return err
	}
	if *format == "archive" {
		return a.loader.StreamArchive(a.out, e)
	}
	if err := a.loader.Load(e, true); err != nil {
		return err
	}

	seriesNames := splitList(*series)
	var data []byte
	switch *format {
	case "csv":
		return export.EventCSV(a.out, e, seriesNames)
	case "json":
		data, err = export.EventJSON(e, seriesNames)
	case "chart":
		data, err = export.ChartJSON(e, seriesNames)
	default:
		return fmt.Errorf("unsupported format %q", *format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

func (a *app) labels(args []string) error {
	fs := newFlagSet("labels")
	id := fs.Int64("id", 0, "event id")
	file := fs.String("file", "", "JSON-lines label file")
	force := fs.Bool("force", false, "replace existing labels of the same name")
	validate := fs.Bool("validate", false, "only check the first label of the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	if *validate {
		return labelparser.ValidateFile(*file)
	}

	res, err := labelparser.ReadFile(*file)
	if err != nil {
		return err
	}
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AddLabels(*id, res.Labels, *force); err != nil {
		return err
	}
	a.logger.Info("Labels stored.", slog.Int64("id", *id), slog.Int("count", res.Count))
	return nil
}

// nameValues collects repeated -label name=value flags. "name" or "name=*"
// accepts any value of that label.
type nameValues map[string][]string

func (nv nameValues) String() string {
	parts := make([]string, 0, len(nv))
	for name, values := range nv {
		parts = append(parts, name+"="+strings.Join(values, "|"))
	}
	return strings.Join(parts, ",")
}

func (nv nameValues) Set(s string) error {
	name, value, hasValue := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid label criterion %q", s)
	}
	if !hasValue || value == "*" {
		nv[name] = nil
		return nil
	}
	if _, seen := nv[name]; seen && nv[name] == nil {
		return nil
	}
	nv[name] = append(nv[name], value)
	return nil
}

// optionalBool is a flag that stays nil unless set.
type optionalBool struct{ v *bool }

func (o *optionalBool) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.FormatBool(*o.v)
}

func (o *optionalBool) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.v = &b
	return nil
}

func (a *app) filter(args []string) error {
	fs := newFlagSet("filter")
	system := fs.String("system", "", "waveform system")
	locations := fs.String("locations", "", "comma-separated locations")
	classifications := fs.String("classifications", "", "comma-separated classifications")
	begin := fs.String("begin", "", "earliest event time")
	end := fs.String("end", "", "latest event time")
	minFiles := fs.Int("min-files", 0, "minimum number of capture files")
	var archive, del, labeled optionalBool
	fs.Var(&archive, "archive", "archive flag")
	fs.Var(&del, "delete", "to-be-deleted flag")
	fs.Var(&labeled, "labeled", "keep only labeled (true) or unlabeled (false) events")
	models := fs.String("models", "", "comma-separated label model names")
	criteria := nameValues{}
	fs.Var(criteria, "label", "label criterion name=value (repeatable)")
	confOp := fs.String("conf-op", "", "confidence operator: = != > >= < <= null")
	conf := fs.Float64("conf", 0, "confidence threshold")
	includeUnlabeled := fs.Bool("include-unlabeled", false, "add unlabeled events back after filtering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ef := query.EventFilter{
		System:          *system,
		Locations:       splitList(*locations),
		Classifications: splitList(*classifications),
		Archive:         archive.v,
		Delete:          del.v,
	}
	for _, tf := range []struct {
		s   string
		dst **time.Time
	}{{*begin, &ef.Begin}, {*end, &ef.End}} {
		if tf.s == "" {
			continue
		}
		t, err := parseTime(tf.s, a.cfg.Location)
		if err != nil {
			return err
		}
		*tf.dst = &t
	}
	if *minFiles > 0 {
		ef.MinCaptureFiles = minFiles
	}

	var filters []*labelfilter.Filter
	if labeled.v != nil {
		filters = append(filters, labelfilter.Existence(*labeled.v))
	}
	c := labelfilter.Criteria{ModelNames: splitList(*models)}
	if len(criteria) > 0 {
		c.NameValues = criteria
	}
	if *confOp != "" {
		op, err := labelfilter.ParseConfidenceOp(*confOp)
		if err != nil {
			return err
		}
		c.Confidence = &labelfilter.ConfidenceCriterion{Op: op, Threshold: *conf}
	}
	if len(c.ModelNames) > 0 || c.NameValues != nil || c.Confidence != nil {
		f, err := labelfilter.New(c)
		if err != nil {
			return err
		}
		filters = append(filters, f)
	}

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.QueryEvents(ef)
	if err != nil {
		return err
	}
	for _, e := range labelfilter.ApplyAll(events, filters, *includeUnlabeled) {
		labels := make([]string, len(e.Labels))
		for i, l := range e.Labels {
			labels[i] = l.Name + "=" + l.Value
		}
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			*e.ID, e.TimeString(a.cfg.Location), e.System, e.Location, e.Classification,
			e.NumCaptureFiles(), strings.Join(labels, ","))
	}
	return nil
}

func (a *app) series(args []string) error {
	fs := newFlagSet("series")
	add := fs.Bool("add", false, "add a series instead of listing")
	name := fs.String("name", "", "series name")
	pattern := fs.String("pattern", "", "SQL LIKE pattern of waveform names")
	system := fs.String("system", "", "waveform system")
	description := fs.String("description", "", "series description")
	units := fs.String("units", "", "units of the series values")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := a.openStore(*add)
	if err != nil {
		return err
	}
	defer store.Close()

	if *add {
		id, err := store.InsertSeries(model.Series{
			Name:        *name,
			Pattern:     *pattern,
			System:      *system,
			Description: *description,
			Units:       *units,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, id)
		return nil
	}

	list, err := store.ListSeries(*system)
	if err != nil {
		return err
	}
	for _, s := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.System, s.Pattern, s.Units)
	}
	return nil
}
