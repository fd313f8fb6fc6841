package labelfilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlab/wfbrowser/internal/model"
)

func label(id int64, name, value string, confidence float64) model.Label {
	return model.Label{ID: &id, ModelName: "testModel", Name: name, Value: value, Confidence: &confidence}
}

func testEvents() []*model.Event {
	t1 := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id int64, offset time.Duration, loc string, labels []model.Label) *model.Event {
		return model.RestoreEvent(id, model.EventParams{
			Time:     t1.Add(-offset),
			Location: loc,
			System:   "testSystem",
		}, labels)
	}
	return []*model.Event{
		mk(1, 0, "loc1", []model.Label{label(1, "cavity", "1", 0.99), label(1, "fault-type", "E_Quench", 0.99)}),
		mk(2, 100*time.Millisecond, "loc1", []model.Label{label(2, "cavity", "1", 0.75), label(2, "fault-type", "E_Quench", 0.75)}),
		mk(3, 200*time.Millisecond, "loc1", []model.Label{label(3, "cavity", "1", 0.09), label(3, "fault-type", "Quench", 0.09)}),
		mk(4, 300*time.Millisecond, "loc2", []model.Label{label(4, "cavity", "3", 0.99), label(4, "fault-type", "E_Quench", 0.09)}),
		mk(5, 400*time.Millisecond, "loc2", nil),
	}
}

func mustNew(t *testing.T, c Criteria) *Filter {
	t.Helper()
	f, err := New(c)
	require.NoError(t, err)
	return f
}

// --- Existence Tests ---

func TestExistence(t *testing.T) {
	events := testEvents()
	labeled := Existence(true).Apply(events)
	unlabeled := Existence(false).Apply(events)

	assert.Equal(t, events[:4], labeled)
	assert.Equal(t, events[4:], unlabeled)
	assert.Len(t, append(labeled, unlabeled...), len(events))
	for _, e := range labeled {
		assert.NotContains(t, unlabeled, e)
	}
}

func TestExistence_EmptyLabelList(t *testing.T) {
	e := model.RestoreEvent(9, model.EventParams{Time: time.Now()}, []model.Label{})
	assert.False(t, Existence(true).Matches(e))
	assert.True(t, Existence(false).Matches(e))
}

// --- Criteria Tests ---

func TestConfidenceGreater(t *testing.T) {
	events := testEvents()
	f := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: Greater, Threshold: 0.5}})
	assert.Equal(t, events[:2], f.Apply(events))
}

func TestConfidenceLess(t *testing.T) {
	events := testEvents()
	f := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: Less, Threshold: 0.5}})
	assert.Equal(t, events[2:3], f.Apply(events))
}

func TestConfidenceEveryLabel(t *testing.T) {
	e := model.RestoreEvent(1, model.EventParams{Time: time.Now()}, []model.Label{
		label(1, "cavity", "1", 0.9),
		label(2, "fault-type", "Quench", 0.3),
	})
	f := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: Greater, Threshold: 0.5}})
	assert.False(t, f.Matches(e))
}

func TestConfidenceAbsent(t *testing.T) {
	noConf := model.Label{ModelName: "m", Name: "cavity", Value: "1"}
	withConf := label(1, "cavity", "2", 0.4)

	allNull := model.RestoreEvent(1, model.EventParams{Time: time.Now()}, []model.Label{noConf, noConf})
	mixed := model.RestoreEvent(2, model.EventParams{Time: time.Now()}, []model.Label{noConf, withConf})

	absent := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: Absent}})
	assert.True(t, absent.Matches(allNull))
	assert.False(t, absent.Matches(mixed))

	for _, op := range []ConfidenceOp{Equal, NotEqual, Greater, GreaterEqual, Less, LessEqual} {
		f := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: op, Threshold: 0.4}})
		assert.False(t, f.Matches(allNull), "null confidence must fail %v", op)
	}
}

func TestConfidenceOperators(t *testing.T) {
	e := model.RestoreEvent(1, model.EventParams{Time: time.Now()}, []model.Label{label(1, "cavity", "1", 0.5)})
	tests := []struct {
		op   ConfidenceOp
		want bool
	}{
		{Equal, true},
		{NotEqual, false},
		{Greater, false},
		{GreaterEqual, true},
		{Less, false},
		{LessEqual, true},
		{Absent, false},
	}
	for _, tt := range tests {
		f := mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: tt.op, Threshold: 0.5}})
		assert.Equal(t, tt.want, f.Matches(e), "op %v", tt.op)
	}
}

func TestNameValues(t *testing.T) {
	events := testEvents()

	cavity1 := mustNew(t, Criteria{NameValues: map[string][]string{"cavity": {"1"}}})
	assert.Equal(t, events[:3], cavity1.Apply(events))

	quench := mustNew(t, Criteria{NameValues: map[string][]string{
		"cavity":     {"1"},
		"fault-type": {"Quench"},
	}})
	assert.Equal(t, events[2:3], quench.Apply(events))

	anyCavity := mustNew(t, Criteria{NameValues: map[string][]string{"cavity": nil}})
	assert.Equal(t, events[:4], anyCavity.Apply(events))

	missingName := mustNew(t, Criteria{NameValues: map[string][]string{"trip-zone": nil}})
	assert.Empty(t, missingName.Apply(events))
}

func TestNameValues_AnyLabelCanMatch(t *testing.T) {
	e := model.RestoreEvent(1, model.EventParams{Time: time.Now()}, []model.Label{
		label(1, "cavity", "1", 0.5),
		label(2, "cavity", "4", 0.5),
	})
	f := mustNew(t, Criteria{NameValues: map[string][]string{"cavity": {"1"}}})
	assert.True(t, f.Matches(e))
}

func TestModelNamesAndIDs(t *testing.T) {
	events := testEvents()

	assert.Equal(t, events[:4], mustNew(t, Criteria{ModelNames: []string{"other", "testModel"}}).Apply(events))
	assert.Empty(t, mustNew(t, Criteria{ModelNames: []string{"other"}}).Apply(events))
	assert.Equal(t, []*model.Event{events[1], events[3]}, mustNew(t, Criteria{IDs: []int64{2, 4}}).Apply(events))
}

func TestEmptyCriteriaRequireLabels(t *testing.T) {
	events := testEvents()
	assert.Equal(t, events[:4], mustNew(t, Criteria{}).Apply(events))
}

func TestNew_InvalidOperator(t *testing.T) {
	_, err := New(Criteria{Confidence: &ConfidenceCriterion{Op: ConfidenceOp(42)}})
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}

func TestParseConfidenceOp(t *testing.T) {
	for _, s := range []string{"=", "!=", ">", ">=", "<", "<="} {
		op, err := ParseConfidenceOp(s)
		require.NoError(t, err)
		assert.Equal(t, s, op.String())
	}
	op, err := ParseConfidenceOp("absent")
	require.NoError(t, err)
	assert.Equal(t, Absent, op)

	_, err = ParseConfidenceOp("LIKE")
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}

// --- ApplyAll Tests ---

func TestApplyAll(t *testing.T) {
	events := testEvents()
	filters := []*Filter{
		mustNew(t, Criteria{NameValues: map[string][]string{"cavity": {"1"}}}),
		mustNew(t, Criteria{Confidence: &ConfidenceCriterion{Op: Greater, Threshold: 0.5}}),
	}

	assert.Equal(t, events[:2], ApplyAll(events, filters, false))
	assert.Equal(t, []*model.Event{events[0], events[1], events[4]}, ApplyAll(events, filters, true))
}

func TestApplyAll_NoFilters(t *testing.T) {
	events := testEvents()
	assert.Equal(t, events, ApplyAll(events, nil, false))
}
