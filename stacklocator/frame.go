// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package stacklocator

import "errors"

// ErrUndecodableFilename is returned by Frame.Filename when the host cannot represent the source file
// identifier as text
var ErrUndecodableFilename = errors.New("undecodable source file name")

// Frame is a single activation record of the host runtime call stack
type Frame interface {
	// Filename returns the source file identifier of the frame's code
	Filename() (string, error)
	// InstructionOffset returns the offset of the current instruction within the frame's compiled code.
	// Hosts that have no instruction-level granularity return false.
	InstructionOffset() (int, bool)
	// LineForOffset resolves an instruction offset into a 1-based line number
	LineForOffset(offset int) int
	// Caller returns the calling frame or nil for the outermost one
	Caller() Frame
}

// Host provides access to the call stack of the calling execution context
type Host interface {
	// CurrentFrame returns the innermost frame of the current execution context. The second value is
	// false if there is no active execution context, which is distinct from an empty stack (nil, true).
	CurrentFrame() (Frame, bool)
}

// HostFunc is an adapter to use an ordinary function as a Host
type HostFunc func() (Frame, bool)

// CurrentFrame calls fn()
func (fn HostFunc) CurrentFrame() (Frame, bool) {
	return fn()
}
