package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jlab/wfbrowser/internal/model"
	"github.com/jlab/wfbrowser/internal/query"
)

var eventColumns = []string{
	"event_time_utc", "location", "system_name", "classification",
	"grouped", "archive", "to_be_deleted",
}

// InsertEvent stores e with its labels, capture files, waveform names and
// metadata in a single transaction, and returns the new event id. Waveform
// data stays on disk. The ids of the stored rows are set on e and its parts
// once the transaction commits.
func (s *sqlStore) InsertEvent(e *model.Event) (int64, error) {
	if e.ID != nil {
		return 0, fmt.Errorf("event already stored with id %d: %w", *e.ID, model.ErrLogic)
	}
	if e.NumCaptureFiles() == 0 {
		return 0, fmt.Errorf("event %s has no capture files: %w", e, model.ErrLogic)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	d := s.dialect
	var eventID int64
	err = tx.QueryRow(insertSQL(d, "event", eventColumns, "event_id"),
		d.TimeValue(e.Time), d.SanitizeText(e.Location), d.SanitizeText(e.System),
		d.SanitizeText(e.Classification), query.BoolArg(e.Grouped),
		query.BoolArg(e.Archive), query.BoolArg(e.ToBeDeleted),
	).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}

	// ids are only handed out after commit
	var assign []func()

	labelAssign, err := s.insertLabels(tx, eventID, e.Labels)
	if err != nil {
		return 0, err
	}
	assign = append(assign, labelAssign...)

	for _, cf := range e.CaptureFiles() {
		cfAssign, err := s.insertCaptureFile(tx, eventID, cf)
		if err != nil {
			return 0, fmt.Errorf("inserting capture file %s: %w", cf.Filename, err)
		}
		assign = append(assign, cfAssign...)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	e.ID = &eventID
	for _, f := range assign {
		f()
	}
	return eventID, nil
}

func (s *sqlStore) insertCaptureFile(tx *sql.Tx, eventID int64, cf *model.CaptureFile) ([]func(), error) {
	d := s.dialect
	var start, end, step sql.NullFloat64
	if cf.Summary != nil {
		start = sql.NullFloat64{Float64: cf.Summary.Start, Valid: true}
		end = sql.NullFloat64{Float64: cf.Summary.End, Valid: true}
		step = sql.NullFloat64{Float64: cf.Summary.Step, Valid: true}
	}

	var captureID int64
	err := tx.QueryRow(insertSQL(d, "capture",
		[]string{"event_id", "filename", "sample_start", "sample_end", "sample_step"}, "capture_id"),
		eventID, d.SanitizeText(cf.Filename), start, end, step,
	).Scan(&captureID)
	if err != nil {
		return nil, err
	}
	assign := []func(){func() { cf.ID = &captureID }}

	wfSQL := insertSQL(d, "capture_wf", []string{"capture_id", "waveform_name"}, "cwf_id")
	for _, w := range cf.Waveforms() {
		var id int64
		if err := tx.QueryRow(wfSQL, captureID, d.SanitizeText(w.Name)).Scan(&id); err != nil {
			return nil, fmt.Errorf("inserting waveform %s: %w", w.Name, err)
		}
		assign = append(assign, func() { w.ID = &id })
	}

	metaSQL := insertSQL(d, "capture_meta",
		[]string{"capture_id", "meta_name", "type", "value", "start", "offset"}, "meta_id")
	for i, m := range cf.Metadata {
		value, mStart, mOffset := metadataColumns(m)
		if value.Valid {
			value.String = d.SanitizeText(value.String)
		}
		var id int64
		err := tx.QueryRow(metaSQL, captureID, d.SanitizeText(m.Name), m.Kind().String(),
			value, mStart, mOffset).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("inserting metadata %s: %w", m.Name, err)
		}
		assign = append(assign, func() { cf.Metadata[i].ID = &id })
	}
	return assign, nil
}

// metadataColumns splits a metadata value into its value, start and offset columns.
func metadataColumns(m model.Metadata) (value sql.NullString, start, offset sql.NullFloat64) {
	switch v := m.Value.(type) {
	case model.NumberValue:
		value = sql.NullString{String: strconv.FormatFloat(v.Value, 'g', -1, 64), Valid: true}
		start = sql.NullFloat64{Float64: v.Start, Valid: true}
		offset = sql.NullFloat64{Float64: v.Offset, Valid: true}
	case model.StringValue:
		value = sql.NullString{String: v.Value, Valid: true}
		start = sql.NullFloat64{Float64: v.Start, Valid: true}
		offset = sql.NullFloat64{Float64: v.Offset, Valid: true}
	case model.UnavailableValue:
		offset = sql.NullFloat64{Float64: v.Offset, Valid: true}
	}
	return value, start, offset
}

// metadataValue is the inverse of metadataColumns.
func metadataValue(kind string, value sql.NullString, start, offset sql.NullFloat64) (model.MetadataValue, error) {
	t, err := model.ParseMetadataType(kind)
	if err != nil {
		return nil, err
	}
	switch t {
	case model.MetadataNumber:
		f, err := strconv.ParseFloat(value.String, 64)
		if err != nil {
			return nil, fmt.Errorf("stored number %q: %w", value.String, model.ErrMalformedInput)
		}
		return model.NumberValue{Value: f, Start: start.Float64, Offset: offset.Float64}, nil
	case model.MetadataString:
		return model.StringValue{Value: value.String, Start: start.Float64, Offset: offset.Float64}, nil
	case model.MetadataUnavailable:
		return model.UnavailableValue{Offset: offset.Float64}, nil
	default:
		return model.UnarchivedValue{}, nil
	}
}

// QueryEvents returns the events matching f ordered by time. Events carry
// their labels and capture files; waveforms are data-less stubs tagged with
// the stored series.
func (s *sqlStore) QueryEvents(f query.EventFilter) ([]*model.Event, error) {
	sqlStr, args := query.ForFilter(f, s.dialect).Build(s.dialect)
	rows, err := s.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(events) == 0 {
		return events, nil
	}

	series, err := s.ListSeries("")
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if err := s.restore(e); err != nil {
			return nil, fmt.Errorf("restoring event %d: %w", *e.ID, err)
		}
		e.ApplySeries(series)
	}
	return events, nil
}

// CountEvents returns the number of events matching f.
func (s *sqlStore) CountEvents(f query.EventFilter) (int64, error) {
	sqlStr, args := query.ForFilter(f, s.dialect).BuildCount(s.dialect)
	var n int64
	if err := s.conn.QueryRow(sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// GetEvent returns the event with the given id.
func (s *sqlStore) GetEvent(id int64) (*model.Event, error) {
	events, err := s.QueryEvents(query.EventFilter{IDs: []int64{id}})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %d: %w", id, model.ErrDataNotFound)
	}
	return events[0], nil
}

// scanEvent reads one row laid out as query.EventColumns.
func scanEvent(rows *sql.Rows) (*model.Event, error) {
	var (
		id                      int64
		rawTime                 interface{}
		location, system, class string
		grouped, archive, del   int
		numCF                   int64
	)
	if err := rows.Scan(&id, &rawTime, &location, &system, &class,
		&grouped, &archive, &del, &numCF); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	t, err := parseStoredTime(rawTime)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}
	return model.RestoreEvent(id, model.EventParams{
		Time:           t,
		Location:       location,
		System:         system,
		Classification: class,
		Grouped:        grouped == 1,
		Archive:        archive == 1,
		ToBeDeleted:    del == 1,
	}, nil), nil
}

// parseStoredTime accepts what the drivers hand back for a time column:
// TimeLayout text from SQLite or a time.Time from PostgreSQL.
func parseStoredTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeText(t)
	case []byte:
		return parseTimeText(string(t))
	}
	return time.Time{}, fmt.Errorf("unexpected stored time %T: %w", v, model.ErrMalformedInput)
}

func parseTimeText(s string) (time.Time, error) {
	t, err := time.ParseInLocation(query.TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored time %q: %w", s, model.ErrMalformedInput)
	}
	return t, nil
}

// restore loads the labels and capture files of e.
func (s *sqlStore) restore(e *model.Event) error {
	labels, err := s.loadLabels(*e.ID)
	if err != nil {
		return err
	}
	e.Labels = labels

	d := s.dialect
	rows, err := s.conn.Query(
		"SELECT capture_id, filename, sample_start, sample_end, sample_step FROM capture WHERE event_id = "+
			d.Placeholder(1)+" ORDER BY filename", *e.ID)
	if err != nil {
		return fmt.Errorf("querying capture files: %w", err)
	}
	var files []*model.CaptureFile
	for rows.Next() {
		var (
			id               int64
			filename         string
			start, end, step sql.NullFloat64
		)
		if err := rows.Scan(&id, &filename, &start, &end, &step); err != nil {
			rows.Close()
			return fmt.Errorf("scanning capture file: %w", err)
		}
		var summary *model.SampleSummary
		if start.Valid && end.Valid && step.Valid {
			summary = &model.SampleSummary{Start: start.Float64, End: end.Float64, Step: step.Float64}
		}
		files = append(files, model.NewCaptureFile(&id, filename, summary))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, cf := range files {
		if err := s.loadWaveformNames(cf); err != nil {
			return err
		}
		if err := s.loadMetadata(cf); err != nil {
			return err
		}
		e.AddCaptureFile(cf)
	}
	return nil
}

func (s *sqlStore) loadWaveformNames(cf *model.CaptureFile) error {
	rows, err := s.conn.Query(
		"SELECT cwf_id, waveform_name FROM capture_wf WHERE capture_id = "+s.dialect.Placeholder(1), *cf.ID)
	if err != nil {
		return fmt.Errorf("querying waveforms of %s: %w", cf.Filename, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scanning waveform: %w", err)
		}
		cf.AddWaveform(model.NewWaveformStub(&id, name))
	}
	return rows.Err()
}

func (s *sqlStore) loadMetadata(cf *model.CaptureFile) error {
	d := s.dialect
	rows, err := s.conn.Query(
		"SELECT meta_id, meta_name, type, value, start, "+d.QuoteColumn("offset")+
			" FROM capture_meta WHERE capture_id = "+d.Placeholder(1)+" ORDER BY meta_id", *cf.ID)
	if err != nil {
		return fmt.Errorf("querying metadata of %s: %w", cf.Filename, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id            int64
			name, kind    string
			value         sql.NullString
			start, offset sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &kind, &value, &start, &offset); err != nil {
			return fmt.Errorf("scanning metadata: %w", err)
		}
		v, err := metadataValue(kind, value, start, offset)
		if err != nil {
			return fmt.Errorf("metadata %s of %s: %w", name, cf.Filename, err)
		}
		cf.AddMetadata(model.Metadata{ID: &id, Name: name, Value: v})
	}
	return rows.Err()
}

// SetArchive sets the archive flag of an event.
func (s *sqlStore) SetArchive(id int64, archive bool) error {
	return s.setFlag("archive", id, archive)
}

// SetDelete sets the to_be_deleted flag of an event.
func (s *sqlStore) SetDelete(id int64, delete bool) error {
	return s.setFlag("to_be_deleted", id, delete)
}

func (s *sqlStore) setFlag(column string, id int64, value bool) error {
	d := s.dialect
	res, err := s.conn.Exec(
		"UPDATE event SET "+column+" = "+d.Placeholder(1)+" WHERE event_id = "+d.Placeholder(2),
		query.BoolArg(value), id)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, model.ErrDataNotFound)
	}
	return nil
}

// DeleteEvent removes an event and everything stored with it. Unless force is
// set, only events flagged to_be_deleted are removed. It returns the number of
// events deleted.
func (s *sqlStore) DeleteEvent(id int64, force bool) (int64, error) {
	d := s.dialect
	stmt := "DELETE FROM event WHERE event_id = " + d.Placeholder(1)
	if !force {
		stmt += " AND to_be_deleted = 1"
	}
	res, err := s.conn.Exec(stmt, id)
	if err != nil {
		return 0, fmt.Errorf("deleting event %d: %w", id, err)
	}
	return res.RowsAffected()
}

// eventExists reports whether an event row with id exists.
func (s *sqlStore) eventExists(q interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}, id int64) (bool, error) {
	var one int
	err := q.QueryRow("SELECT 1 FROM event WHERE event_id = "+s.dialect.Placeholder(1), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
