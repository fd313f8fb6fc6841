package database

import (
	"github.com/jlab/wfbrowser/internal/model"
	"github.com/jlab/wfbrowser/internal/query"
)

// Store defines the interface for all database operations.
// Every method the CLI needs is captured here so that callers depend on the
// interface, not on a concrete database type.
type Store interface {
	// Events
	InsertEvent(e *model.Event) (int64, error)
	QueryEvents(f query.EventFilter) ([]*model.Event, error)
	CountEvents(f query.EventFilter) (int64, error)
	GetEvent(id int64) (*model.Event, error)
	SetArchive(id int64, archive bool) error
	SetDelete(id int64, delete bool) error
	DeleteEvent(id int64, force bool) (int64, error)

	// Labels
	AddLabels(eventID int64, labels []model.Label, force bool) error
	DeleteLabels(eventID int64) (int64, error)

	// Distinct values for filter choices
	GetLocationNames(systems []string) ([]string, error)
	GetClassifications(systems []string) ([]string, error)

	// Series
	InsertSeries(s model.Series) (int64, error)
	ListSeries(system string) ([]model.Series, error)

	// Lifecycle
	Close() error
	Path() string
}
