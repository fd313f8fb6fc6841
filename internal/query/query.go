package query

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TimeLayout is how event times are stored and compared. Fixed-width UTC text
// sorts the same way the times do.
const TimeLayout = "2006-01-02 15:04:05.000000"

// FormatTime renders t as a query parameter in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// EventColumns are the columns selected for every event query, in scan order.
var EventColumns = []string{
	"event_id", "event_time_utc", "location", "system_name", "classification",
	"grouped", "archive", "to_be_deleted", "num_cf",
}

// eventSource is the row source of event queries. num_cf is the number of
// capture files stored for the event.
const eventSource = "(SELECT event.*, " +
	"(SELECT COUNT(*) FROM capture WHERE capture.event_id = event.event_id) AS num_cf " +
	"FROM event) ev"

// Logic determines how multiple predicates are combined.
type Logic int

const (
	AND Logic = iota
	OR
)

// Operator represents a SQL comparison operator.
type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "!="
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
)

// validOperators is the set of allowed operators for validation.
var validOperators = map[Operator]bool{
	Equal: true, NotEqual: true, GreaterOrEqual: true, LessOrEqual: true,
}

// Predicate represents a single filter condition or a composite of conditions.
// Predicates use parameterized values to prevent SQL injection.
type Predicate struct {
	kind   predicateKind
	field  string
	op     Operator
	value  interface{}
	values []interface{}
	left   *Predicate
	right  *Predicate
	logic  Logic
}

type predicateKind int

const (
	predNone predicateKind = iota
	predSimple
	predIn
	predComposite
)

// Simple creates a predicate that compares a field to a value.
// Returns nil if the field name is invalid or the operator is unrecognized.
func Simple(field string, op Operator, value interface{}) *Predicate {
	if !isValidField(field) || !validOperators[op] {
		return nil
	}
	return &Predicate{
		kind:  predSimple,
		field: field,
		op:    op,
		value: value,
	}
}

// In creates a predicate matching rows whose field equals any of values.
// Returns nil for an invalid field or an empty value list.
func In(field string, values []interface{}) *Predicate {
	if !isValidField(field) || len(values) == 0 {
		return nil
	}
	return &Predicate{
		kind:   predIn,
		field:  field,
		values: values,
	}
}

// Combine joins multiple predicates with the given logic (AND or OR).
// Returns nil for an empty slice. Returns the single predicate if only one is given.
// Nil predicates in the slice are skipped.
func Combine(preds []*Predicate, logic Logic) *Predicate {
	filtered := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}

	result := &Predicate{
		kind:  predComposite,
		left:  filtered[0],
		right: filtered[1],
		logic: logic,
	}
	for i := 2; i < len(filtered); i++ {
		result = &Predicate{
			kind:  predComposite,
			left:  result,
			right: filtered[i],
			logic: logic,
		}
	}
	return result
}

// WhereClause returns the SQL WHERE fragment and its parameter values, with
// placeholders numbered from 1.
// For example: "(location = ?)", []interface{}{"1L22"}
func (p *Predicate) WhereClause(d QueryDialect) (string, []interface{}) {
	next := 1
	return p.render(d, &next)
}

func (p *Predicate) render(d QueryDialect, next *int) (string, []interface{}) {
	if p == nil {
		return "", nil
	}
	if d == nil {
		d = DefaultDialect
	}

	switch p.kind {
	case predSimple:
		ph := d.Placeholder(*next)
		*next++
		return fmt.Sprintf("(%s %s %s)", d.QuoteColumn(p.field), p.op, ph),
			[]interface{}{p.value}

	case predIn:
		phs := make([]string, len(p.values))
		for i := range p.values {
			phs[i] = d.Placeholder(*next)
			*next++
		}
		return fmt.Sprintf("(%s IN (%s))", d.QuoteColumn(p.field), strings.Join(phs, ", ")),
			slices.Clone(p.values)

	case predComposite:
		leftSQL, leftArgs := p.left.render(d, next)
		rightSQL, rightArgs := p.right.render(d, next)

		if leftSQL == "" && rightSQL == "" {
			return "", nil
		}
		if leftSQL == "" {
			return rightSQL, rightArgs
		}
		if rightSQL == "" {
			return leftSQL, leftArgs
		}

		logicStr := "AND"
		if p.logic == OR {
			logicStr = "OR"
		}
		return fmt.Sprintf("(%s %s %s)", leftSQL, logicStr, rightSQL),
			append(leftArgs, rightArgs...)

	default:
		return "", nil
	}
}

// Fields returns the list of field names referenced by this predicate tree.
func (p *Predicate) Fields() []string {
	if p == nil {
		return nil
	}

	switch p.kind {
	case predSimple, predIn:
		return []string{p.field}
	case predComposite:
		var result []string
		for _, f := range append(p.left.Fields(), p.right.Fields()...) {
			if !slices.Contains(result, f) {
				result = append(result, f)
			}
		}
		return result
	default:
		return nil
	}
}

// EventFilter selects stored events. Zero-valued fields do not filter.
type EventFilter struct {
	IDs             []int64
	Begin           *time.Time // inclusive
	End             *time.Time // inclusive
	System          string
	Locations       []string
	Classifications []string
	Archive         *bool
	Delete          *bool
	MinCaptureFiles *int
}

// Predicate returns the conjunction of every set criterion for d, or nil
// when the filter is empty.
func (f EventFilter) Predicate(d QueryDialect) *Predicate {
	if d == nil {
		d = DefaultDialect
	}
	var preds []*Predicate
	if len(f.IDs) > 0 {
		preds = append(preds, In("event_id", toArgs(f.IDs)))
	}
	if f.Begin != nil {
		preds = append(preds, Simple("event_time_utc", GreaterOrEqual, d.TimeValue(*f.Begin)))
	}
	if f.End != nil {
		preds = append(preds, Simple("event_time_utc", LessOrEqual, d.TimeValue(*f.End)))
	}
	if f.System != "" {
		preds = append(preds, Simple("system_name", Equal, f.System))
	}
	if len(f.Locations) > 0 {
		preds = append(preds, In("location", toArgs(f.Locations)))
	}
	if len(f.Classifications) > 0 {
		preds = append(preds, In("classification", toArgs(f.Classifications)))
	}
	if f.Archive != nil {
		preds = append(preds, Simple("archive", Equal, BoolArg(*f.Archive)))
	}
	if f.Delete != nil {
		preds = append(preds, Simple("to_be_deleted", Equal, BoolArg(*f.Delete)))
	}
	if f.MinCaptureFiles != nil {
		preds = append(preds, Simple("num_cf", GreaterOrEqual, *f.MinCaptureFiles))
	}
	return Combine(preds, AND)
}

// WhereClause renders the filter for d. The fragment is empty when the filter
// selects everything.
func (f EventFilter) WhereClause(d QueryDialect) (string, []interface{}) {
	return f.Predicate(d).WhereClause(d)
}

// BoolArg is how flags are stored: 1 or 0.
func BoolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toArgs[T any](vals []T) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// Query builds a full SELECT statement over events from predicates, ordering,
// and pagination.
type Query struct {
	predicates []*Predicate
	logic      Logic
	orderBy    string
	pageSize   int
	page       int
}

// New creates a new Query with the given page size.
// Pass 0 for no pagination.
func New(pageSize int) *Query {
	return &Query{
		logic:    AND,
		orderBy:  "event_time_utc",
		pageSize: pageSize,
		page:     1,
	}
}

// ForFilter creates an unpaginated query for f rendered with d.
func ForFilter(f EventFilter, d QueryDialect) *Query {
	q := New(0)
	q.AddPredicate(f.Predicate(d))
	return q
}

// SetLogic sets how top-level predicates are combined (AND or OR).
func (q *Query) SetLogic(logic Logic) {
	q.logic = logic
}

// AddPredicate appends a predicate to the query. Nil predicates are ignored.
func (q *Query) AddPredicate(p *Predicate) {
	if p != nil {
		q.predicates = append(q.predicates, p)
	}
}

// ClearPredicates removes all predicates from the query.
func (q *Query) ClearPredicates() {
	q.predicates = nil
}

// OrderBy sets the column to sort results by. Ties are always broken by
// event_id. Pass an empty string to sort by event_id alone.
func (q *Query) OrderBy(field string) error {
	if field != "" && !isValidField(field) {
		return fmt.Errorf("invalid order by field: %s", field)
	}
	q.orderBy = field
	return nil
}

// SetPage sets the current page number (1-based).
func (q *Query) SetPage(page int) {
	if page >= 1 {
		q.page = page
	}
}

// PageNumber returns the current page number (1-based).
func (q *Query) PageNumber() int {
	return q.page
}

// Build generates the full SQL SELECT statement and its parameter values.
func (q *Query) Build(d QueryDialect) (string, []interface{}) {
	if d == nil {
		d = DefaultDialect
	}
	cols := make([]string, len(EventColumns))
	for i, c := range EventColumns {
		cols[i] = d.QuoteColumn(c)
	}
	sql := "SELECT " + strings.Join(cols, ", ") + " FROM " + eventSource

	where, args := Combine(q.predicates, q.logic).WhereClause(d)
	if where != "" {
		sql += " WHERE " + where
	}

	switch q.orderBy {
	case "", "event_id":
		sql += " ORDER BY event_id"
	default:
		sql += " ORDER BY " + d.QuoteColumn(q.orderBy) + ", event_id"
	}

	if q.pageSize > 0 {
		offset := q.pageSize * (q.page - 1)
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", q.pageSize, offset)
	}
	return sql, args
}

// BuildCount generates a COUNT query using the same predicates.
func (q *Query) BuildCount(d QueryDialect) (string, []interface{}) {
	sql := "SELECT COUNT(*) FROM " + eventSource
	where, args := Combine(q.predicates, q.logic).WhereClause(d)
	if where != "" {
		sql += " WHERE " + where
	}
	return sql, args
}

// isValidField checks a field name against the known columns.
func isValidField(name string) bool {
	return slices.Contains(EventColumns, name)
}
