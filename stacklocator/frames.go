// (c) Copyright IBM Corp. 2021
// (c) Copyright Instana Inc. 2020

package stacklocator

// FrameInfo describes a frame of an in-memory call stack
type FrameInfo struct {
	Filename string
	// Line is reported for any instruction offset within the frame
	Line int
	// Offset is the instruction offset, ignored if NoOffset is set
	Offset   int
	NoOffset bool
	// DecodeErr, if set, is returned by Filename instead of the name
	DecodeErr error
}

// Frames is a call stack held in memory, innermost frame first. It is useful for hosts that capture
// the stack before walking it.
type Frames []FrameInfo

// Top returns the innermost frame or nil if the stack is empty
func (fs Frames) Top() Frame {
	if len(fs) == 0 {
		return nil
	}

	return framesCursor{fs: fs}
}

// Host returns a Host that always reports this stack as the current one
func (fs Frames) Host() Host {
	return HostFunc(func() (Frame, bool) {
		return fs.Top(), true
	})
}

type framesCursor struct {
	fs  Frames
	pos int
}

func (c framesCursor) Filename() (string, error) {
	fi := c.fs[c.pos]
	if fi.DecodeErr != nil {
		return "", fi.DecodeErr
	}

	return fi.Filename, nil
}

func (c framesCursor) InstructionOffset() (int, bool) {
	fi := c.fs[c.pos]
	return fi.Offset, !fi.NoOffset
}

func (c framesCursor) LineForOffset(int) int {
	return c.fs[c.pos].Line
}

func (c framesCursor) Caller() Frame {
	if c.pos+1 >= len(c.fs) {
		return nil
	}

	return framesCursor{fs: c.fs, pos: c.pos + 1}
}
