// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package autoprofile_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/Birdi7/scalene/autoprofile"
	"github.com/Birdi7/scalene/pathmatch"
	"github.com/Birdi7/scalene/tracefilter"
	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributor_Attribute(t *testing.T) {
	r := tracefilter.NewRegistry(nil)
	require.NoError(t, r.Install(newFilter(t)))

	a := autoprofile.NewAttributor(r, "cpu")

	p, err := a.Attribute(newTestProfile())
	require.NoError(t, err)

	assert.Equal(t, "cpu", p.Type)
	assert.Equal(t, "nanoseconds", p.Unit)
	assert.EqualValues(t, 1500, p.Duration)

	value, samples := p.Total()
	assert.Equal(t, 100.0, value)
	assert.EqualValues(t, 4, samples)

	value, samples = p.Unattributed()
	assert.Equal(t, 40.0, value)
	assert.EqualValues(t, 2, samples)

	require.Len(t, p.Roots, 2)

	assert.Equal(t, "/project/main.py", p.Roots[0].FileName)
	assert.Equal(t, "<BOGUS>", p.Roots[1].FileName)

	lines := p.Roots[0].Children()
	require.Len(t, lines, 2)

	assert.EqualValues(t, 12, lines[0].FileLine)
	m, ns := lines[0].Measurement()
	assert.Equal(t, 40.0, m)
	assert.EqualValues(t, 1, ns)

	assert.EqualValues(t, 30, lines[1].FileLine)
	m, ns = lines[1].Measurement()
	assert.Equal(t, 20.0, m)
	assert.EqualValues(t, 1, ns)
}

func TestAttributor_Attribute_DefaultValueType(t *testing.T) {
	a := autoprofile.NewAttributor(newFilter(t), "")

	p, err := a.Attribute(newTestProfile())
	require.NoError(t, err)

	assert.Equal(t, "samples", p.Type)

	value, samples := p.Total()
	assert.Equal(t, 4.0, value)
	assert.EqualValues(t, 4, samples)
}

func TestAttributor_Attribute_NoFilter(t *testing.T) {
	a := autoprofile.NewAttributor(tracefilter.NewRegistry(nil), "cpu")

	p, err := a.Attribute(newTestProfile())
	require.NoError(t, err)

	require.Len(t, p.Roots, 1)
	assert.Equal(t, "<BOGUS>", p.Roots[0].FileName)

	value, _ := p.Unattributed()
	assert.Equal(t, 100.0, value)
}

func TestAttributor_Attribute_UnknownValueType(t *testing.T) {
	a := autoprofile.NewAttributor(newFilter(t), "alloc_space")

	_, err := a.Attribute(newTestProfile())
	assert.ErrorIs(t, err, autoprofile.ErrUnknownValueType)
}

func TestAttributor_Parse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestProfile().Write(&buf))

	a := autoprofile.NewAttributor(newFilter(t), "cpu")

	p, err := a.Parse(&buf)
	require.NoError(t, err)

	ap, err := a.Attribute(p)
	require.NoError(t, err)

	value, samples := ap.Total()
	assert.Equal(t, 100.0, value)
	assert.EqualValues(t, 4, samples)
}

func TestAttributor_Parse_Malformed(t *testing.T) {
	_, err := autoprofile.NewAttributor(nil, "").Parse(bytes.NewBufferString("definitely not a profile"))
	assert.Error(t, err)
}

func newFilter(t *testing.T) *tracefilter.TraceFilter {
	t.Helper()

	c, err := pathmatch.NewCanonicalizer(16, func(path string) (string, error) {
		return path, nil
	})
	require.NoError(t, err)

	return tracefilter.New(nil, "/project", false,
		tracefilter.WithCanonicalizer(c),
		tracefilter.WithFatalHandler(func(err error) {
			t.Errorf("unexpected fatal error: %s", err)
		}),
	)
}

// newTestProfile returns a profile with four samples:
//   - main.py:12 calling into the standard library
//   - main.py:30 directly
//   - a stack made of library code only
//   - a stack with an undecodable file name above main.py
func newTestProfile() *profile.Profile {
	mainFn := &profile.Function{ID: 1, Name: "main", Filename: "/project/main.py"}
	jsonFn := &profile.Function{ID: 2, Name: "loads", Filename: "/usr/lib/python3.11/json/__init__.py"}
	reqFn := &profile.Function{ID: 3, Name: "get", Filename: "/venv/lib/python3.11/site-packages/requests/api.py"}
	badFn := &profile.Function{ID: 4, Name: "bad", Filename: "/project/\xff.py"}

	mainAt12 := &profile.Location{ID: 1, Address: 0x10, Line: []profile.Line{{Function: mainFn, Line: 12}}}
	mainAt30 := &profile.Location{ID: 2, Address: 0x20, Line: []profile.Line{{Function: mainFn, Line: 30}}}
	jsonLoc := &profile.Location{ID: 3, Address: 0x30, Line: []profile.Line{{Function: jsonFn, Line: 346}}}
	reqLoc := &profile.Location{ID: 4, Address: 0x40, Line: []profile.Line{{Function: reqFn, Line: 73}}}
	badLoc := &profile.Location{ID: 5, Address: 0x50, Line: []profile.Line{{Function: badFn, Line: 1}}}

	return &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{jsonLoc, mainAt12}, Value: []int64{1, 40}},
			{Location: []*profile.Location{mainAt30}, Value: []int64{1, 20}},
			{Location: []*profile.Location{reqLoc, jsonLoc}, Value: []int64{1, 10}},
			{Location: []*profile.Location{badLoc, mainAt12}, Value: []int64{1, 30}},
		},
		Location:      []*profile.Location{mainAt12, mainAt30, jsonLoc, reqLoc, badLoc},
		Function:      []*profile.Function{mainFn, jsonFn, reqFn, badFn},
		TimeNanos:     time.Unix(100, 0).UnixNano(),
		DurationNanos: int64(1500 * time.Millisecond),
		PeriodType:    &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:        10000000,
	}
}
