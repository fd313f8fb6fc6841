package model

import "time"

// Label is a classification attached to an event, usually by an external model.
type Label struct {
	ID         *int64
	Time       *time.Time // when the label was stored
	ModelName  string
	Name       string   // e.g. "cavity" or "fault-type"
	Value      string   // e.g. "microphonics" or "1"
	Confidence *float64 // in [0,1]; nil when the model gave none
}

// Equal compares labels by content. ID and Time are storage details and are ignored.
func (l Label) Equal(o Label) bool {
	if l.ModelName != o.ModelName || l.Name != o.Name || l.Value != o.Value {
		return false
	}
	if (l.Confidence == nil) != (o.Confidence == nil) {
		return false
	}
	return l.Confidence == nil || *l.Confidence == *o.Confidence
}

// HasConfidence reports whether the label carries a confidence value.
func (l Label) HasConfidence() bool {
	return l.Confidence != nil
}
