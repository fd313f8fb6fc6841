package database

import (
	"database/sql"
	"fmt"

	"github.com/jlab/wfbrowser/internal/model"
)

// InsertSeries stores a series definition and returns its id.
func (s *sqlStore) InsertSeries(series model.Series) (int64, error) {
	if series.Name == "" || series.Pattern == "" || series.System == "" {
		return 0, fmt.Errorf("series needs a name, pattern and system: %w", model.ErrMalformedInput)
	}
	d := s.dialect
	var id int64
	err := s.conn.QueryRow(insertSQL(d, "series",
		[]string{"series_name", "pattern", "system_name", "description", "units", "ymin", "ymax"}, "series_id"),
		d.SanitizeText(series.Name), d.SanitizeText(series.Pattern), d.SanitizeText(series.System),
		d.SanitizeText(series.Description), d.SanitizeText(series.Units),
		nullFloat(series.YMin), nullFloat(series.YMax),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting series %s: %w", series.Name, err)
	}
	return id, nil
}

// ListSeries returns the series of a system ordered by name, or every series
// when system is empty.
func (s *sqlStore) ListSeries(system string) ([]model.Series, error) {
	stmt := "SELECT series_id, series_name, pattern, system_name, description, units, ymin, ymax FROM series"
	var args []interface{}
	if system != "" {
		stmt += " WHERE system_name = " + s.dialect.Placeholder(1)
		args = append(args, system)
	}
	stmt += " ORDER BY series_name, system_name"

	rows, err := s.conn.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var out []model.Series
	for rows.Next() {
		var (
			ser        model.Series
			ymin, ymax sql.NullFloat64
		)
		if err := rows.Scan(&ser.ID, &ser.Name, &ser.Pattern, &ser.System,
			&ser.Description, &ser.Units, &ymin, &ymax); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		ser.YMin = floatPtr(ymin)
		ser.YMax = floatPtr(ymax)
		out = append(out, ser)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
