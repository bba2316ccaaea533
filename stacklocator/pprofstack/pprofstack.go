// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package pprofstack exposes samples of a pprof profile as call stacks that can be walked by the stack locator
package pprofstack

import (
	"math"
	"unicode"

	"github.com/Birdi7/scalene/stacklocator"
	"github.com/google/pprof/profile"
)

// SampleFrames returns the call stack of a sample, innermost frame first. Inlined calls recorded within
// a single location are expanded into separate frames.
func SampleFrames(s *profile.Sample) stacklocator.Frames {
	if s == nil {
		return nil
	}

	frames := make(stacklocator.Frames, 0, len(s.Location))
	for _, l := range s.Location {
		frames = appendLocationFrames(frames, l)
	}

	return frames
}

// SampleHost returns a stacklocator.Host reporting the call stack of a sample as the current one
func SampleHost(s *profile.Sample) stacklocator.Host {
	return SampleFrames(s).Host()
}

func appendLocationFrames(frames stacklocator.Frames, l *profile.Location) stacklocator.Frames {
	if l == nil {
		return frames
	}

	offset, hasOffset := instructionOffset(l)

	if len(l.Line) == 0 {
		return append(frames, stacklocator.FrameInfo{Line: 1, Offset: offset, NoOffset: !hasOffset})
	}

	// the first line entry is the innermost inlined call
	for _, ln := range l.Line {
		fi := stacklocator.FrameInfo{
			Line:     int(ln.Line),
			Offset:   offset,
			NoOffset: !hasOffset,
		}

		if fn := ln.Function; fn != nil {
			if isASCII(fn.Filename) {
				fi.Filename = fn.Filename
			} else {
				fi.DecodeErr = stacklocator.ErrUndecodableFilename
			}
		}

		if fi.Line < 1 {
			fi.Line = 1
		}

		frames = append(frames, fi)
	}

	return frames
}

// isASCII reports whether a file name can be decoded. Only ASCII names are accepted.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}

	return true
}

// instructionOffset returns the address of a location relative to the start of its mapping.
// Offsets that do not fit into an int are reported as unavailable.
func instructionOffset(l *profile.Location) (int, bool) {
	if l.Address == 0 {
		return 0, false
	}

	addr := l.Address
	if m := l.Mapping; m != nil && addr >= m.Start && addr < m.Limit {
		addr = addr - m.Start + m.Offset
	}

	if addr > math.MaxInt {
		return 0, false
	}

	return int(addr), true
}
