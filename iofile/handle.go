package iofile

import (
	"errors"
	"sync"
)

// FilePerm default permission of a newly created file.
const FilePerm = 0644

var (
	// ErrNotFound the file does not exist at open time.
	ErrNotFound = errors.New("file does not exist")

	// ErrOutOfRange a position outside [0, length].
	ErrOutOfRange = errors.New("position out of range")

	// ErrClosed operation on a handle after it was closed.
	ErrClosed = errors.New("file already closed")
)

// Input is a raw read handle bound to one file. Length is a snapshot taken
// at open time and position advances with every successful Read.
//
// One Input may be shared by several buffered readers. Read and SetPosition
// touch the shared position, so callers must hold the handle's lock around
// "reconcile position + read"; the other methods are safe without it.
type Input interface {
	sync.Locker

	// Read transfers up to len(b) bytes starting at the current position.
	// It returns the number of bytes transferred, which may be less than
	// len(b), or io.EOF when the position is at or past the end of data.
	// Position advances only by the count returned.
	Read(b []byte) (int, error)

	// SetPosition moves the read position.
	// It returns ErrOutOfRange if pos is outside [0, length].
	SetPosition(pos int64) error

	// Position returns the offset of the next byte to be read.
	Position() int64

	// Length returns the file size recorded at open time.
	Length() int64

	// Path returns the file path the handle was opened with.
	Path() string

	// IsValid reports whether the file can currently be opened and
	// positioned without error. A health probe, not a correctness check.
	IsValid() bool

	// IncrRef adds a reference for a new sharer of the handle.
	IncrRef()

	// SetOnRelease registers fn to run once, after the last reference
	// is closed.
	SetOnRelease(fn func())

	// Close drops one reference. Resources held by the handle are
	// released when the last reference closes.
	Close() error
}

// Output is a raw write handle. It keeps one open descriptor for its whole
// lifetime and is never shared between writers.
type Output interface {
	// Write writes b at the current write cursor.
	// It returns ErrClosed once the handle is closed.
	Write(b []byte) (int, error)

	// SetPosition moves the write cursor.
	SetPosition(pos int64) error

	// Length returns the current on-disk size, never a cached value.
	Length() (int64, error)

	// SetLength truncates or extends the file to n bytes.
	SetLength(n int64) error

	// Sync commits the current contents of the file from OS buffers to
	// stable storage. No-op once the handle is closed.
	Sync() error

	// Path returns the file path the handle was opened with.
	Path() string

	// IsValid reports whether the handle is open and healthy.
	IsValid() bool

	// Close releases the descriptor. A second Close returns ErrClosed.
	Close() error
}
