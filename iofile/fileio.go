package iofile

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"indexstore/util"
)

// FileInput reads through standard file I/O. No descriptor is held between
// calls: every Read opens the file, reads at the recorded position and lets
// the descriptor go again, so any number of shared readers cost nothing
// while idle.
type FileInput struct {
	sync.Mutex // serializes position reconciliation and reads across sharers

	path      string
	length    int64 // size snapshot taken at open time
	position  int64
	refs      int32
	onRelease func()
}

// NewFileInput opens a read handle for the file at path.
// It returns ErrNotFound if the file does not exist.
func NewFileInput(path string) (*FileInput, error) {
	if !util.PathExist(path) {
		return nil, ErrNotFound
	}
	length, err := util.FileLength(path)
	if err != nil {
		return nil, err
	}
	return &FileInput{path: path, length: length, refs: 1}, nil
}

func (in *FileInput) Read(b []byte) (int, error) {
	if atomic.LoadInt32(&in.refs) <= 0 {
		return 0, ErrClosed
	}
	if in.position >= in.length {
		return 0, io.EOF
	}
	if len(b) == 0 {
		return 0, nil
	}
	// Bound the transfer by the recorded length so bytes appended after
	// open stay invisible. The snapshot is the handle's whole world.
	if remaining := in.length - in.position; int64(len(b)) > remaining {
		b = b[:remaining]
	}

	fd, err := os.Open(in.path)
	if err != nil {
		return 0, err
	}
	n, err := fd.ReadAt(b, in.position)
	_ = fd.Close()

	// A partial transfer is a valid outcome. The position only advances
	// by what was actually read, so the caller can come back for the rest.
	if n > 0 {
		in.position += int64(n)
		return n, nil
	}
	if err == io.EOF {
		return 0, io.EOF
	}
	return 0, err
}

func (in *FileInput) SetPosition(pos int64) error {
	if pos < 0 || pos > in.length {
		return ErrOutOfRange
	}
	in.position = pos
	return nil
}

func (in *FileInput) Position() int64 {
	return in.position
}

func (in *FileInput) Length() int64 {
	return in.length
}

func (in *FileInput) Path() string {
	return in.path
}

func (in *FileInput) IsValid() bool {
	if atomic.LoadInt32(&in.refs) <= 0 {
		return false
	}
	fd, err := os.Open(in.path)
	if err != nil {
		return false
	}
	_, err = fd.Seek(in.position, io.SeekStart)
	_ = fd.Close()
	return err == nil
}

func (in *FileInput) IncrRef() {
	atomic.AddInt32(&in.refs, 1)
}

func (in *FileInput) SetOnRelease(fn func()) {
	in.onRelease = fn
}

func (in *FileInput) Close() error {
	refs := atomic.AddInt32(&in.refs, -1)
	if refs > 0 {
		return nil
	}
	if refs < 0 {
		return ErrClosed
	}
	if in.onRelease != nil {
		in.onRelease()
	}
	return nil
}

// FileOutput writes through one descriptor held open from creation until
// Close. Opening truncates any existing file at path.
type FileOutput struct {
	path string
	fd   *os.File // nil once closed
}

// NewFileOutput creates (or truncates) the file at path for writing.
func NewFileOutput(path string) (*FileOutput, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, FilePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "create file: %s", path)
	}
	return &FileOutput{path: path, fd: fd}, nil
}

func (out *FileOutput) Write(b []byte) (int, error) {
	if out.fd == nil {
		return 0, ErrClosed
	}
	n, err := out.fd.Write(b)
	if err != nil {
		return n, errors.Wrapf(err, "write file: %s", out.path)
	}
	return n, nil
}

func (out *FileOutput) SetPosition(pos int64) error {
	if out.fd == nil {
		return ErrClosed
	}
	if _, err := out.fd.Seek(pos, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek file: %s", out.path)
	}
	return nil
}

// Length stats the descriptor so the answer reflects the on-disk size even
// after SetLength or writes that have not gone through this handle's cursor.
func (out *FileOutput) Length() (int64, error) {
	if out.fd == nil {
		return 0, ErrClosed
	}
	stat, err := out.fd.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat file: %s", out.path)
	}
	return stat.Size(), nil
}

func (out *FileOutput) SetLength(n int64) error {
	if out.fd == nil {
		return ErrClosed
	}
	if err := out.fd.Truncate(n); err != nil {
		return errors.Wrapf(err, "truncate file: %s", out.path)
	}
	return nil
}

func (out *FileOutput) Sync() error {
	if out.fd == nil {
		return nil
	}
	if err := out.fd.Sync(); err != nil {
		return errors.Wrapf(err, "sync file: %s", out.path)
	}
	return nil
}

func (out *FileOutput) Path() string {
	return out.path
}

func (out *FileOutput) IsValid() bool {
	if out.fd == nil {
		return false
	}
	_, err := out.fd.Stat()
	return err == nil
}

func (out *FileOutput) Close() error {
	if out.fd == nil {
		return ErrClosed
	}
	err := out.fd.Close()
	out.fd = nil
	if err != nil {
		return errors.Wrapf(err, "close file: %s", out.path)
	}
	return nil
}
