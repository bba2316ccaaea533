// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

// Package stacklocator finds the innermost frame of a call stack that belongs to the profiled code.
package stacklocator

import (
	"github.com/Birdi7/scalene/pathmatch"
)

// BogusFilename is the file name reported when no frame of a stack is accepted by the filter
const BogusFilename = "<BOGUS>"

// LocatedFrame is the source location a sample gets attributed to
type LocatedFrame struct {
	Filename          string
	Line              int
	InstructionOffset int
}

// NotFound returns the sentinel LocatedFrame used for samples that could not be attributed to any frame
func NotFound() LocatedFrame {
	return LocatedFrame{
		Filename:          BogusFilename,
		Line:              1,
		InstructionOffset: 0,
	}
}

// Found returns whether lf points to an actual frame rather than the sentinel
func (lf LocatedFrame) Found() bool {
	return lf != NotFound()
}

// PathFilter decides whether a source file is part of the profiled code
type PathFilter interface {
	ShouldTrace(path string) bool
}

var skipFrame = pathmatch.FrameSkipMatcher()

// Locate walks the call stack of the host's current execution context. See LocateFrom for details.
func Locate(host Host, filter PathFilter) LocatedFrame {
	if host == nil {
		return NotFound()
	}

	top, ok := host.CurrentFrame()
	if !ok {
		return NotFound()
	}

	return LocateFrom(top, filter)
}

// LocateFrom walks the stack from top to the outermost frame and returns the location of the first
// frame accepted by filter. Frames with an empty file name are skipped, as well as synthetic sources,
// runtime library and profiler frames, for which the filter is not consulted at all. If a frame name
// cannot be decoded, the walk stops. A nil filter accepts nothing.
//
// The sentinel returned by NotFound() is used whenever there is no accepted frame.
func LocateFrom(top Frame, filter PathFilter) LocatedFrame {
	for frame := top; frame != nil; frame = frame.Caller() {
		name, err := frame.Filename()
		if err != nil {
			return NotFound()
		}

		if name == "" || skipFrame.Match(name) {
			continue
		}

		if filter == nil || !filter.ShouldTrace(name) {
			continue
		}

		offset, ok := frame.InstructionOffset()
		if !ok {
			offset = 0
		}

		return LocatedFrame{
			Filename:          name,
			Line:              frame.LineForOffset(offset),
			InstructionOffset: offset,
		}
	}

	return NotFound()
}
