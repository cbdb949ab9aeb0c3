package stream

import (
	"io"

	"github.com/pkg/errors"

	"indexstore/iofile"
)

const (
	// DefaultBufferSize per-stream buffer capacity.
	DefaultBufferSize = 4096

	// DefaultChunkSize caps a single physical transfer. Huge reads are
	// split into chunks so no one call exceeds what a platform reliably
	// services in one operation.
	DefaultChunkSize = 64 << 20
)

// ErrUnexpectedEOF a read asked for bytes beyond the recorded file length.
var ErrUnexpectedEOF = errors.New("read past EOF")

// Input is a buffered random-access reader over a shared raw handle.
//
// Several Inputs may share one handle: Clone hands out an independent cursor
// backed by the same iofile.Input, and every physical read serializes on the
// handle's lock. A single Input is not safe for concurrent use; clones are
// safe relative to each other.
type Input struct {
	src iofile.Input

	buffer      []byte
	bufferSize  int
	bufferStart int64 // file offset of buffer[0]
	bufferPos   int   // read position within the buffer
	bufferLen   int   // valid bytes in the buffer

	length    int64 // src length snapshot
	chunkSize int64
	isClone   bool
	closed    bool
}

// NewInput wraps src with a read buffer. Non-positive bufferSize or
// chunkSize fall back to the defaults.
func NewInput(src iofile.Input, bufferSize int, chunkSize int64) *Input {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Input{
		src:        src,
		bufferSize: bufferSize,
		chunkSize:  chunkSize,
		length:     src.Length(),
	}
}

// Read fills all of p from the current position, refilling the buffer as
// needed. Reads of at least bufferSize bytes skip the buffer and go to the
// handle directly. It returns the number of bytes placed in p; anything
// short of len(p) comes with an error, never silently.
func (in *Input) Read(p []byte) (int, error) {
	if in.closed {
		return 0, iofile.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Serve from the buffer while it lasts.
	avail := in.bufferLen - in.bufferPos
	if len(p) <= avail {
		copy(p, in.buffer[in.bufferPos:in.bufferPos+len(p)])
		in.bufferPos += len(p)
		return len(p), nil
	}
	var n int
	if avail > 0 {
		copy(p, in.buffer[in.bufferPos:in.bufferLen])
		in.bufferPos = in.bufferLen
		n = avail
	}
	rest := p[n:]

	if len(rest) >= in.bufferSize {
		// The buffer would only slow a read this large down.
		pos := in.FilePointer()
		if pos+int64(len(rest)) > in.length {
			return n, ErrUnexpectedEOF
		}
		if err := in.fill(rest, pos); err != nil {
			return n, err
		}
		in.bufferStart = pos + int64(len(rest))
		in.bufferPos = 0
		in.bufferLen = 0
		return len(p), nil
	}

	if err := in.refill(); err != nil {
		return n, err
	}
	if in.bufferLen < len(rest) {
		copy(rest, in.buffer[:in.bufferLen])
		in.bufferPos = in.bufferLen
		return n + in.bufferLen, ErrUnexpectedEOF
	}
	copy(rest, in.buffer[:len(rest)])
	in.bufferPos = len(rest)
	return len(p), nil
}

// ReadByte returns the byte at the current position.
func (in *Input) ReadByte() (byte, error) {
	if in.closed {
		return 0, iofile.ErrClosed
	}
	if in.bufferPos >= in.bufferLen {
		if err := in.refill(); err != nil {
			return 0, err
		}
	}
	b := in.buffer[in.bufferPos]
	in.bufferPos++
	return b, nil
}

// refill loads the next bufferSize window starting at the current position.
func (in *Input) refill() error {
	start := in.bufferStart + int64(in.bufferPos)
	end := start + int64(in.bufferSize)
	if end > in.length {
		end = in.length
	}
	n := end - start
	if n <= 0 {
		return ErrUnexpectedEOF
	}
	if in.buffer == nil {
		in.buffer = make([]byte, in.bufferSize)
	}
	if err := in.fill(in.buffer[:n], start); err != nil {
		return err
	}
	in.bufferStart = start
	in.bufferPos = 0
	in.bufferLen = int(n)
	return nil
}

// fill reads exactly len(p) bytes at position straight from the shared
// handle. The handle's lock covers reconciling its position and the whole
// chunk loop, so cursors on other clones never interleave mid-transfer.
func (in *Input) fill(p []byte, position int64) error {
	in.src.Lock()
	defer in.src.Unlock()

	if position != in.src.Position() {
		if err := in.src.SetPosition(position); err != nil {
			return err
		}
	}
	var total int64
	for total < int64(len(p)) {
		transfer := int64(len(p)) - total
		if transfer > in.chunkSize {
			transfer = in.chunkSize
		}
		n, err := in.src.Read(p[total : total+transfer])
		if err == io.EOF {
			return ErrUnexpectedEOF
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read file: %s", in.src.Path())
		}
		total += int64(n)
	}
	return nil
}

// Seek moves the logical position without touching the shared handle;
// repositioning happens lazily on the next fill.
// It returns ErrOutOfRange if pos is outside [0, Length()].
func (in *Input) Seek(pos int64) error {
	if in.closed {
		return iofile.ErrClosed
	}
	if pos < 0 || pos > in.length {
		return iofile.ErrOutOfRange
	}
	if pos >= in.bufferStart && pos < in.bufferStart+int64(in.bufferLen) {
		// Still inside the buffered window.
		in.bufferPos = int(pos - in.bufferStart)
	} else {
		in.bufferStart = pos
		in.bufferPos = 0
		in.bufferLen = 0
	}
	return nil
}

// FilePointer returns the logical position of the next read.
func (in *Input) FilePointer() int64 {
	return in.bufferStart + int64(in.bufferPos)
}

// Length returns the file size recorded when the handle was opened.
func (in *Input) Length() int64 {
	return in.length
}

// Clone returns an independent cursor over the same raw handle, positioned
// where this one is now. It performs no I/O.
func (in *Input) Clone() (*Input, error) {
	if in.closed {
		return nil, iofile.ErrClosed
	}
	in.src.IncrRef()
	return &Input{
		src:         in.src,
		bufferSize:  in.bufferSize,
		bufferStart: in.FilePointer(),
		length:      in.length,
		chunkSize:   in.chunkSize,
		isClone:     true,
	}, nil
}

// IsClone reports whether this Input came from Clone.
func (in *Input) IsClone() bool {
	return in.isClone
}

// IsValid delegates to the shared handle's health probe.
func (in *Input) IsValid() bool {
	if in.closed {
		return false
	}
	return in.src.IsValid()
}

// Close drops this cursor's reference on the shared handle. The handle
// itself is released when its last holder, original or clone, closes.
// A second Close is a no-op.
func (in *Input) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	return in.src.Close()
}
