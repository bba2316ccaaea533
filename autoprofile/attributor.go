// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package autoprofile attributes the samples of a pprof profile to the innermost frame that belongs
// to the profiled code.
package autoprofile

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Birdi7/scalene/stacklocator"
	"github.com/Birdi7/scalene/stacklocator/pprofstack"
	"github.com/google/pprof/profile"
)

// DefaultValueType is the sample value used when none is specified and the profile records it
const DefaultValueType = "samples"

// ErrUnknownValueType is returned when a profile has no sample value of the requested type
var ErrUnknownValueType = errors.New("unrecognized profile data")

// Attributor assigns the samples of a profile to source lines using a path filter
type Attributor struct {
	filter    stacklocator.PathFilter
	valueType string
}

// NewAttributor returns an Attributor that uses filter to accept frames and sums up the sample values of
// valueType. An empty valueType selects DefaultValueType if present, otherwise the first sample type.
func NewAttributor(filter stacklocator.PathFilter, valueType string) *Attributor {
	return &Attributor{
		filter:    filter,
		valueType: valueType,
	}
}

// Parse reads a pprof profile in any format supported by github.com/google/pprof/profile and
// validates it
func (a *Attributor) Parse(r io.Reader) (*profile.Profile, error) {
	p, err := profile.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return p, nil
}

// Attribute walks the stack of every sample in p and accumulates its value under the located frame.
// Samples without any accepted frame are accumulated under the sentinel location.
func (a *Attributor) Attribute(p *profile.Profile) (*Profile, error) {
	if p == nil {
		return nil, errors.New("no profile provided")
	}

	valueIndex, err := a.valueIndex(p)
	if err != nil {
		return nil, err
	}

	top := NewCallSite("", 0)
	for _, s := range p.Sample {
		if valueIndex >= len(s.Value) {
			return nil, fmt.Errorf("sample has %d values, expected at least %d", len(s.Value), valueIndex+1)
		}

		lf := stacklocator.Locate(pprofstack.SampleHost(s), a.filter)
		value := float64(s.Value[valueIndex])

		file := top.FindOrAddChild(lf.Filename, 0)
		file.Increment(value, 1)
		file.FindOrAddChild(lf.Filename, int64(lf.Line)).Increment(value, 1)
	}

	st := p.SampleType[valueIndex]

	return NewProfile(st.Type, st.Unit, top.Children(), time.Duration(p.DurationNanos), time.Unix(0, p.TimeNanos)), nil
}

func (a *Attributor) valueIndex(p *profile.Profile) (int, error) {
	if len(p.SampleType) == 0 {
		return -1, ErrUnknownValueType
	}

	valueType := a.valueType
	if valueType == "" {
		valueType = DefaultValueType
	}

	for i, st := range p.SampleType {
		if st.Type == valueType {
			return i, nil
		}
	}

	if a.valueType == "" {
		return 0, nil
	}

	return -1, fmt.Errorf("%w: no %q sample values", ErrUnknownValueType, a.valueType)
}
