package captureparser

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlab/wfbrowser/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `# R123GMES=-1.27 @ -3.2(-40.1)
# R123PSET='on' @ 0(-0.4)
# R123DETA=unavailable @ 0
# R123CRFP=not archived
time	R123GMES	R123PMES
-1.6	1.5	10
-1.4	2.5	20
-1.2	0.5	30
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- Metadata Tests ---

func TestParseMetadataLine_Number(t *testing.T) {
	md, err := ParseMetadataLine("# R123GMES=-1.27 @ -3.2(-40.1)")
	require.NoError(t, err)
	assert.Equal(t, "R123GMES", md.Name)
	assert.Equal(t, model.NumberValue{Value: -1.27, Offset: -3.2, Start: -40.1}, md.Value)
}

func TestParseMetadataLine_Exponent(t *testing.T) {
	md, err := ParseMetadataLine("# PV1=5.6e-3 @ -.5(-45.9)")
	require.NoError(t, err)
	assert.Equal(t, model.NumberValue{Value: 5.6e-3, Offset: -0.5, Start: -45.9}, md.Value)
}

func TestParseMetadataLine_String(t *testing.T) {
	md, err := ParseMetadataLine("# PV2='A B=C' @ 0(-000.4)")
	require.NoError(t, err)
	assert.Equal(t, "PV2", md.Name)
	assert.Equal(t, model.StringValue{Value: "A B=C", Offset: 0, Start: -0.4}, md.Value)
}

func TestParseMetadataLine_Unavailable(t *testing.T) {
	md, err := ParseMetadataLine("# PV3=unavailable @ 1.5")
	require.NoError(t, err)
	assert.Equal(t, model.UnavailableValue{Offset: 1.5}, md.Value)
	assert.Equal(t, model.MetadataUnavailable, md.Kind())
}

func TestParseMetadataLine_Unarchived(t *testing.T) {
	md, err := ParseMetadataLine("# PV4=not archived")
	require.NoError(t, err)
	assert.Equal(t, "PV4", md.Name)
	assert.Equal(t, model.UnarchivedValue{}, md.Value)
	_, hasOffset := md.Offset()
	assert.False(t, hasOffset)
}

func TestParseMetadataLine_Malformed(t *testing.T) {
	lines := []string{
		"# X=5 @",
		"# X=5",
		"#X=not archived",
		"# X=abc @ 0(0)",
		"# X=1-2 @ 0(0)",
		"# =5 @ 0(0)",
		"# X=unavailable @ e",
	}
	for _, line := range lines {
		_, err := ParseMetadataLine(line)
		assert.ErrorIs(t, err, model.ErrMalformedInput, line)
	}
}

// --- Parse Tests ---

func TestParse_WithData(t *testing.T) {
	cf, err := Parse(strings.NewReader(sampleFile), "R123.2018_04_24_062915.4.txt", true)
	require.NoError(t, err)

	assert.Equal(t, "R123.2018_04_24_062915.4.txt", cf.Filename)
	require.Len(t, cf.Metadata, 4)
	assert.Equal(t, model.MetadataNumber, cf.Metadata[0].Kind())
	assert.Equal(t, model.MetadataString, cf.Metadata[1].Kind())
	assert.Equal(t, model.MetadataUnavailable, cf.Metadata[2].Kind())
	assert.Equal(t, model.MetadataUnarchived, cf.Metadata[3].Kind())

	assert.Equal(t, []string{"R123GMES", "R123PMES"}, cf.WaveformNames())
	gmes, ok := cf.Waveform("R123GMES")
	require.True(t, ok)
	assert.Equal(t, []float64{-1.6, -1.4, -1.2}, gmes.TimeOffsets())
	assert.Equal(t, []float64{1.5, 2.5, 0.5}, gmes.Values())
	assert.Equal(t, 3, cap(gmes.Values()))

	require.NotNil(t, cf.Summary)
	assert.Equal(t, -1.6, cf.Summary.Start)
	assert.Equal(t, -1.2, cf.Summary.End)
	assert.InDelta(t, 0.2, cf.Summary.Step, 1e-12)
}

func TestParse_LongRow(t *testing.T) {
	row := "-1.0\t2.5" + strings.Repeat(" ", 2<<20) + "\n"
	cf, err := Parse(strings.NewReader("time\tR1GMES\n"+row+"0.0\t3.5\r\n"), "wide.txt", true)
	require.NoError(t, err)
	w, ok := cf.Waveform("R1GMES")
	require.True(t, ok)
	assert.Equal(t, []float64{-1.0, 0.0}, w.TimeOffsets())
	assert.Equal(t, []float64{2.5, 3.5}, w.Values())
}

func TestParse_HeadersOnly(t *testing.T) {
	cf, err := Parse(strings.NewReader(sampleFile), "a.txt", false)
	require.NoError(t, err)
	assert.Nil(t, cf.Summary)
	for _, w := range cf.Waveforms() {
		assert.Equal(t, 0, w.Len())
	}
	assert.Len(t, cf.Waveforms(), 2)
}

func TestParse_SpaceDelimited(t *testing.T) {
	content := "time  A   B\n0   1 2\n0.5 3  4\n"
	cf, err := Parse(strings.NewReader(content), "a.txt", true)
	require.NoError(t, err)
	b, _ := cf.Waveform("B")
	assert.Equal(t, []float64{2, 4}, b.Values())
	assert.Empty(t, cf.Metadata)
}

func TestParse_EmptyCellsAreNaN(t *testing.T) {
	content := "time\tA\tB\n0\t\t2\n1\t3\n"
	cf, err := Parse(strings.NewReader(content), "a.txt", true)
	require.NoError(t, err)

	a, _ := cf.Waveform("A")
	b, _ := cf.Waveform("B")
	assert.True(t, math.IsNaN(a.Values()[0]))
	assert.Equal(t, 3.0, a.Values()[1])
	assert.Equal(t, 2.0, b.Values()[0])
	assert.True(t, math.IsNaN(b.Values()[1]))
}

func TestParse_SingleRow(t *testing.T) {
	cf, err := Parse(strings.NewReader("time A\n0.25 1\n"), "a.txt", true)
	require.NoError(t, err)
	assert.Equal(t, &model.SampleSummary{Start: 0.25, End: 0.25, Step: 0}, cf.Summary)
}

func TestParse_NoHeader(t *testing.T) {
	cf, err := Parse(strings.NewReader("# PV4=not archived\n"), "a.txt", true)
	require.NoError(t, err)
	assert.Len(t, cf.Metadata, 1)
	assert.Empty(t, cf.Waveforms())
}

func TestParse_MalformedMetadataAborts(t *testing.T) {
	cf, err := Parse(strings.NewReader("# X=5 @\ntime A\n0 1\n"), "a.txt", true)
	assert.ErrorIs(t, err, model.ErrMalformedInput)
	assert.Nil(t, cf)
}

func TestParse_BadSample(t *testing.T) {
	_, err := Parse(strings.NewReader("time A\n0 abc\n"), "a.txt", true)
	assert.ErrorIs(t, err, model.ErrMalformedInput)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParse_ManyRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("time A\n")
	n := initialRows*2 + 7
	for i := 0; i < n; i++ {
		sb.WriteString("1 2\n")
	}
	cf, err := Parse(strings.NewReader(sb.String()), "a.txt", true)
	require.NoError(t, err)
	a, _ := cf.Waveform("A")
	assert.Equal(t, n, a.Len())
}

func TestParseFile(t *testing.T) {
	path := writeTempFile(t, "R1M.txt", sampleFile)
	cf, err := ParseFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, "R1M.txt", cf.Filename)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile("/nonexistent/file.txt", true)
	assert.Error(t, err)
}

// Parsing the same file twice, first without data, must update the existing
// waveforms of the event.
func TestParse_RoundTripThroughEvent(t *testing.T) {
	e, err := model.NewEvent(model.EventParams{Time: time.Now(), System: "rf", Location: "1L22"})
	require.NoError(t, err)

	headers, err := Parse(strings.NewReader(sampleFile), "a.txt", false)
	require.NoError(t, err)
	require.NoError(t, e.MergeCaptureFile(headers))
	before := e.Waveforms()

	full, err := Parse(strings.NewReader(sampleFile), "a.txt", true)
	require.NoError(t, err)
	require.NoError(t, e.MergeCaptureFile(full))
	after := e.Waveforms()

	require.Len(t, after, len(before))
	for i := range before {
		assert.Same(t, before[i], after[i])
		assert.Equal(t, 3, after[i].Len())
	}
	cf, _ := e.CaptureFile("a.txt")
	assert.Len(t, cf.Metadata, 4)
}
