package stream

import (
	"indexstore/iofile"
)

// Output is a buffered sequential writer. It owns its raw handle outright;
// there is no sharing or cloning on the write side, one writer per file.
//
// The buffer is write-through: whenever it drains, the bytes go straight to
// the file in a single call, so after Flush nothing is staged in userspace.
type Output struct {
	dst iofile.Output

	buffer      []byte
	bufferStart int64 // file offset of buffer[0]
	bufferPos   int   // bytes staged in the buffer

	isOpen  bool
	onClose func()
}

// NewOutput wraps dst with a write buffer. Non-positive bufferSize falls
// back to the default.
func NewOutput(dst iofile.Output, bufferSize int) *Output {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Output{
		dst:    dst,
		buffer: make([]byte, bufferSize),
		isOpen: true,
	}
}

// Write stages p, draining the buffer to the file whenever it fills.
// Writes of at least the buffer size skip staging entirely.
func (out *Output) Write(p []byte) (int, error) {
	if !out.isOpen {
		return 0, iofile.ErrClosed
	}
	if len(p) <= len(out.buffer)-out.bufferPos {
		copy(out.buffer[out.bufferPos:], p)
		out.bufferPos += len(p)
		return len(p), nil
	}

	if len(p) >= len(out.buffer) {
		if err := out.flush(); err != nil {
			return 0, err
		}
		if _, err := out.dst.Write(p); err != nil {
			return 0, err
		}
		out.bufferStart += int64(len(p))
		return len(p), nil
	}

	// Top the buffer up, drain it, stage the remainder.
	n := len(out.buffer) - out.bufferPos
	copy(out.buffer[out.bufferPos:], p[:n])
	out.bufferPos = len(out.buffer)
	if err := out.flush(); err != nil {
		return n, err
	}
	copy(out.buffer, p[n:])
	out.bufferPos = len(p) - n
	return len(p), nil
}

// WriteByte stages a single byte.
func (out *Output) WriteByte(c byte) error {
	if !out.isOpen {
		return iofile.ErrClosed
	}
	if out.bufferPos >= len(out.buffer) {
		if err := out.flush(); err != nil {
			return err
		}
	}
	out.buffer[out.bufferPos] = c
	out.bufferPos++
	return nil
}

// Flush writes any staged bytes through to the file.
func (out *Output) Flush() error {
	if !out.isOpen {
		return iofile.ErrClosed
	}
	return out.flush()
}

func (out *Output) flush() error {
	if out.bufferPos == 0 {
		return nil
	}
	if _, err := out.dst.Write(out.buffer[:out.bufferPos]); err != nil {
		return err
	}
	out.bufferStart += int64(out.bufferPos)
	out.bufferPos = 0
	return nil
}

// Sync flushes staged bytes and commits the file to stable storage.
func (out *Output) Sync() error {
	if !out.isOpen {
		return iofile.ErrClosed
	}
	if err := out.flush(); err != nil {
		return err
	}
	return out.dst.Sync()
}

// Seek flushes staged bytes for the old position, then moves the write
// cursor. Seeking past the current end is allowed; the gap reads as zeros.
func (out *Output) Seek(pos int64) error {
	if !out.isOpen {
		return iofile.ErrClosed
	}
	if err := out.flush(); err != nil {
		return err
	}
	if err := out.dst.SetPosition(pos); err != nil {
		return err
	}
	out.bufferStart = pos
	return nil
}

// FilePointer returns the logical position of the next write.
func (out *Output) FilePointer() int64 {
	return out.bufferStart + int64(out.bufferPos)
}

// Length returns the current on-disk size. Staged bytes do not count until
// they are flushed.
func (out *Output) Length() (int64, error) {
	if !out.isOpen {
		return 0, iofile.ErrClosed
	}
	return out.dst.Length()
}

// SetLength truncates or extends the file to n bytes.
func (out *Output) SetLength(n int64) error {
	if !out.isOpen {
		return iofile.ErrClosed
	}
	return out.dst.SetLength(n)
}

// IsValid reports whether the stream is open and its handle healthy.
func (out *Output) IsValid() bool {
	if !out.isOpen {
		return false
	}
	return out.dst.IsValid()
}

// SetOnClose registers fn to run once, after the stream closes.
func (out *Output) SetOnClose(fn func()) {
	out.onClose = fn
}

// Close flushes staged bytes and releases the handle. A second Close is a
// no-op.
func (out *Output) Close() error {
	if !out.isOpen {
		return nil
	}
	flushErr := out.flush()
	out.isOpen = false
	closeErr := out.dst.Close()
	if out.onClose != nil {
		out.onClose()
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
