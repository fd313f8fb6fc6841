// Package labelfilter selects events by the labels attached to them.
package labelfilter

import (
	"fmt"
	"slices"

	"github.com/jlab/wfbrowser/internal/model"
)

// ConfidenceOp is a comparison applied to every label's confidence.
type ConfidenceOp int

const (
	Equal ConfidenceOp = iota
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual
	Absent // confidence must be null
)

// ParseConfidenceOp accepts the SQL-style operators and "null" or "absent".
func ParseConfidenceOp(s string) (ConfidenceOp, error) {
	switch s {
	case "=":
		return Equal, nil
	case "!=":
		return NotEqual, nil
	case ">":
		return Greater, nil
	case ">=":
		return GreaterEqual, nil
	case "<":
		return Less, nil
	case "<=":
		return LessEqual, nil
	case "null", "absent":
		return Absent, nil
	}
	return 0, fmt.Errorf("invalid confidence operator %q, valid options are = != > >= < <= null: %w",
		s, model.ErrMalformedInput)
}

func (op ConfidenceOp) String() string {
	switch op {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Absent:
		return "null"
	}
	return fmt.Sprintf("ConfidenceOp(%d)", int(op))
}

// accepts reports whether a label confidence c satisfies "c op threshold".
func (op ConfidenceOp) accepts(c *float64, threshold float64) bool {
	if op == Absent {
		return c == nil
	}
	if c == nil {
		return false
	}
	switch op {
	case Equal:
		return *c == threshold
	case NotEqual:
		return *c != threshold
	case Greater:
		return *c > threshold
	case GreaterEqual:
		return *c >= threshold
	case Less:
		return *c < threshold
	case LessEqual:
		return *c <= threshold
	}
	return false
}

// ConfidenceCriterion compares every label's confidence to Threshold.
// Threshold is ignored for Absent.
type ConfidenceCriterion struct {
	Op        ConfidenceOp
	Threshold float64
}

// Criteria are the fine-grained checks of a filter. Empty fields are not checked.
type Criteria struct {
	// ModelNames passes when some label came from one of these models.
	ModelNames []string
	// IDs passes when some label has one of these ids.
	IDs []int64
	// NameValues maps a label name to its accepted values. A nil value list
	// accepts any value. Every key must be matched by some label.
	NameValues map[string][]string
	Confidence *ConfidenceCriterion
}

// Filter is either an existence check or a set of criteria.
type Filter struct {
	existence   bool
	wantLabeled bool
	criteria    Criteria
}

// Existence returns a filter that keeps labeled events (wantLabeled) or
// unlabeled ones (!wantLabeled).
func Existence(wantLabeled bool) *Filter {
	return &Filter{existence: true, wantLabeled: wantLabeled}
}

// New returns a criteria filter.
func New(c Criteria) (*Filter, error) {
	if c.Confidence != nil && (c.Confidence.Op < Equal || c.Confidence.Op > Absent) {
		return nil, fmt.Errorf("invalid confidence operator %v: %w", c.Confidence.Op, model.ErrMalformedInput)
	}
	return &Filter{criteria: c}, nil
}

// Matches reports whether e passes the filter. An event without labels never
// passes a criteria filter.
func (f *Filter) Matches(e *model.Event) bool {
	if f.existence {
		return e.HasLabels() == f.wantLabeled
	}
	if !e.HasLabels() {
		return false
	}

	c := f.criteria
	if len(c.ModelNames) > 0 && !slices.ContainsFunc(e.Labels, func(l model.Label) bool {
		return slices.Contains(c.ModelNames, l.ModelName)
	}) {
		return false
	}
	if len(c.IDs) > 0 && !slices.ContainsFunc(e.Labels, func(l model.Label) bool {
		return l.ID != nil && slices.Contains(c.IDs, *l.ID)
	}) {
		return false
	}
	for name, values := range c.NameValues {
		if !slices.ContainsFunc(e.Labels, func(l model.Label) bool {
			return l.Name == name && (values == nil || slices.Contains(values, l.Value))
		}) {
			return false
		}
	}
	if c.Confidence != nil {
		for _, l := range e.Labels {
			if !c.Confidence.Op.accepts(l.Confidence, c.Confidence.Threshold) {
				return false
			}
		}
	}
	return true
}

// Apply returns the events that pass the filter, in their original order.
func (f *Filter) Apply(events []*model.Event) []*model.Event {
	var out []*model.Event
	for _, e := range events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// ApplyAll keeps the events passing every filter. With includeUnlabeled the
// unlabeled events are added back, and the result keeps the input order.
func ApplyAll(events []*model.Event, filters []*Filter, includeUnlabeled bool) []*model.Event {
	kept := make(map[*model.Event]bool, len(events))
	remaining := events
	for _, f := range filters {
		remaining = f.Apply(remaining)
	}
	for _, e := range remaining {
		kept[e] = true
	}
	if includeUnlabeled {
		for _, e := range Existence(false).Apply(events) {
			kept[e] = true
		}
	}

	var out []*model.Event
	for _, e := range events {
		if kept[e] {
			out = append(out, e)
		}
	}
	return out
}
