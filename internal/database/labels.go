package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jlab/wfbrowser/internal/model"
)

var labelColumns = []string{
	"event_id", "label_time_utc", "model_name", "label_name", "label_value", "label_confidence",
}

// AddLabels attaches labels to a stored event in one transaction. An event
// holds at most one label per name; with force, an existing label of the same
// name is replaced, otherwise the insert fails.
func (s *sqlStore) AddLabels(eventID int64, labels []model.Label, force bool) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := s.eventExists(tx, eventID)
	if err != nil {
		return fmt.Errorf("looking up event %d: %w", eventID, err)
	}
	if !ok {
		return fmt.Errorf("event %d: %w", eventID, model.ErrDataNotFound)
	}

	if force {
		d := s.dialect
		del := "DELETE FROM label WHERE event_id = " + d.Placeholder(1) + " AND label_name = " + d.Placeholder(2)
		for _, l := range labels {
			if _, err := tx.Exec(del, eventID, d.SanitizeText(l.Name)); err != nil {
				return fmt.Errorf("replacing label %s: %w", l.Name, err)
			}
		}
	}

	assign, err := s.insertLabels(tx, eventID, labels)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for _, f := range assign {
		f()
	}
	return nil
}

// insertLabels inserts labels within tx. The returned funcs set the stored id
// and time on each label and must only run after commit.
func (s *sqlStore) insertLabels(tx *sql.Tx, eventID int64, labels []model.Label) ([]func(), error) {
	if len(labels) == 0 {
		return nil, nil
	}
	d := s.dialect
	stmt := insertSQL(d, "label", labelColumns, "label_id")
	now := time.Now().UTC().Truncate(time.Microsecond)

	assign := make([]func(), 0, len(labels))
	for i, l := range labels {
		var id int64
		err := tx.QueryRow(stmt, eventID, d.TimeValue(now), d.SanitizeText(l.ModelName),
			d.SanitizeText(l.Name), d.SanitizeText(l.Value), nullFloat(l.Confidence)).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("inserting label %s: %w", l.Name, err)
		}
		assign = append(assign, func() {
			labels[i].ID = &id
			labels[i].Time = &now
		})
	}
	return assign, nil
}

// DeleteLabels removes every label of an event and returns how many were removed.
func (s *sqlStore) DeleteLabels(eventID int64) (int64, error) {
	res, err := s.conn.Exec("DELETE FROM label WHERE event_id = "+s.dialect.Placeholder(1), eventID)
	if err != nil {
		return 0, fmt.Errorf("deleting labels of event %d: %w", eventID, err)
	}
	return res.RowsAffected()
}

// loadLabels returns the labels of an event in insertion order, or nil when it has none.
func (s *sqlStore) loadLabels(eventID int64) ([]model.Label, error) {
	rows, err := s.conn.Query(
		"SELECT label_id, label_time_utc, model_name, label_name, label_value, label_confidence"+
			" FROM label WHERE event_id = "+s.dialect.Placeholder(1)+" ORDER BY label_id", eventID)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var (
			l          model.Label
			id         int64
			rawTime    interface{}
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&id, &rawTime, &l.ModelName, &l.Name, &l.Value, &confidence); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		t, err := parseStoredTime(rawTime)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", id, err)
		}
		l.ID = &id
		l.Time = &t
		l.Confidence = floatPtr(confidence)
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// GetLocationNames returns the distinct event locations, optionally limited
// to the given systems, in ascending order.
func (s *sqlStore) GetLocationNames(systems []string) ([]string, error) {
	return s.distinctEventValues("location", systems)
}

// GetClassifications returns the distinct event classifications, optionally
// limited to the given systems, in ascending order.
func (s *sqlStore) GetClassifications(systems []string) ([]string, error) {
	return s.distinctEventValues("classification", systems)
}

func (s *sqlStore) distinctEventValues(column string, systems []string) ([]string, error) {
	stmt := "SELECT DISTINCT " + column + " FROM event"
	args := make([]interface{}, len(systems))
	if len(systems) > 0 {
		stmt += " WHERE system_name IN (" + inPlaceholders(s.dialect, 1, len(systems)) + ")"
		for i, sys := range systems {
			args[i] = sys
		}
	}
	stmt += " ORDER BY " + column

	rows, err := s.conn.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying distinct %s: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
