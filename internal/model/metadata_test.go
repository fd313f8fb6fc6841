package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTypeRoundTrip(t *testing.T) {
	for _, mt := range []MetadataType{MetadataNumber, MetadataString, MetadataUnavailable, MetadataUnarchived} {
		got, err := ParseMetadataType(mt.String())
		require.NoError(t, err)
		assert.Equal(t, mt, got)
	}
	_, err := ParseMetadataType("BOOLEAN")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestMetadataOffset(t *testing.T) {
	off, ok := Metadata{Name: "a", Value: NumberValue{Value: 1, Offset: -3.2, Start: -40}}.Offset()
	assert.True(t, ok)
	assert.Equal(t, -3.2, off)

	off, ok = Metadata{Name: "b", Value: UnavailableValue{Offset: 1.5}}.Offset()
	assert.True(t, ok)
	assert.Equal(t, 1.5, off)

	_, ok = Metadata{Name: "c", Value: UnarchivedValue{}}.Offset()
	assert.False(t, ok)
}

func TestMetadataEqual(t *testing.T) {
	a := Metadata{Name: "GMES", Value: NumberValue{Value: 1, Offset: -1}}
	b := Metadata{Name: "GMES", Value: StringValue{Value: "x", Offset: -1}}
	c := Metadata{Name: "GMES", Value: UnarchivedValue{}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, c.Equal(Metadata{Name: "GMES", Value: UnarchivedValue{}}))
	assert.False(t, a.Equal(Metadata{Name: "PMES", Value: NumberValue{Offset: -1}}))
}

func TestLabelEqual_IgnoresStorageFields(t *testing.T) {
	id := int64(4)
	c1, c2 := 0.5, 0.5
	a := Label{ID: &id, ModelName: "m", Name: "cavity", Value: "1", Confidence: &c1}
	b := Label{ModelName: "m", Name: "cavity", Value: "1", Confidence: &c2}
	assert.True(t, a.Equal(b))

	b.Confidence = nil
	assert.False(t, a.Equal(b))
	a.Confidence = nil
	assert.True(t, a.Equal(b))
}
