package model

import "fmt"

// MetadataType enumerates the four shapes a capture-file metadata entry can take.
type MetadataType int

const (
	MetadataNumber MetadataType = iota
	MetadataString
	MetadataUnavailable
	MetadataUnarchived
)

func (t MetadataType) String() string {
	switch t {
	case MetadataNumber:
		return "NUMBER"
	case MetadataString:
		return "STRING"
	case MetadataUnavailable:
		return "UNAVAILABLE"
	case MetadataUnarchived:
		return "UNARCHIVED"
	}
	return fmt.Sprintf("MetadataType(%d)", int(t))
}

// ParseMetadataType is the inverse of MetadataType.String.
func ParseMetadataType(s string) (MetadataType, error) {
	switch s {
	case "NUMBER":
		return MetadataNumber, nil
	case "STRING":
		return MetadataString, nil
	case "UNAVAILABLE":
		return MetadataUnavailable, nil
	case "UNARCHIVED":
		return MetadataUnarchived, nil
	}
	return 0, fmt.Errorf("unknown metadata type %q: %w", s, ErrMalformedInput)
}

// MetadataValue is the payload of a Metadata entry. The set of implementations
// is closed: NumberValue, StringValue, UnavailableValue and UnarchivedValue.
type MetadataValue interface {
	Kind() MetadataType
	isMetadataValue()
}

// NumberValue is a numeric PV reading. Offset is the harvester-configured
// offset from the trigger; Start is when the PV took the value, both in seconds
// relative to the trigger.
type NumberValue struct {
	Value  float64
	Offset float64
	Start  float64
}

// StringValue is a string PV reading with the same timing fields as NumberValue.
type StringValue struct {
	Value  string
	Offset float64
	Start  float64
}

// UnavailableValue means the PV is archived but had no value at Offset.
type UnavailableValue struct {
	Offset float64
}

// UnarchivedValue means the PV is not in the archiver configuration.
type UnarchivedValue struct{}

func (NumberValue) Kind() MetadataType      { return MetadataNumber }
func (StringValue) Kind() MetadataType      { return MetadataString }
func (UnavailableValue) Kind() MetadataType { return MetadataUnavailable }
func (UnarchivedValue) Kind() MetadataType  { return MetadataUnarchived }

func (NumberValue) isMetadataValue()      {}
func (StringValue) isMetadataValue()      {}
func (UnavailableValue) isMetadataValue() {}
func (UnarchivedValue) isMetadataValue()  {}

// Metadata is one "# name=..." header entry of a capture file.
type Metadata struct {
	ID    *int64
	Name  string
	Value MetadataValue
}

// Kind returns the type of the entry's payload.
func (m Metadata) Kind() MetadataType {
	return m.Value.Kind()
}

// Offset returns the trigger offset, if the variant carries one.
func (m Metadata) Offset() (float64, bool) {
	switch v := m.Value.(type) {
	case NumberValue:
		return v.Offset, true
	case StringValue:
		return v.Offset, true
	case UnavailableValue:
		return v.Offset, true
	case UnarchivedValue:
		return 0, false
	}
	return 0, false
}

// Equal reports whether two entries share a name and offset. Values are not compared.
func (m Metadata) Equal(o Metadata) bool {
	if m.Name != o.Name {
		return false
	}
	off, ok := m.Offset()
	oOff, oOK := o.Offset()
	if ok != oOK {
		return false
	}
	return !ok || off == oOff
}
