package indexstore

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"indexstore/iofile"
)

// WriteLockName conventional lock file name taken by an index writer.
const WriteLockName = "write.lock"

// ErrLockHeld the lock is held by another process.
var ErrLockHeld = errors.New("lock held by another process")

// FileLock is an exclusive advisory lock on a file inside the directory.
// It fences index writers from each other across processes.
type FileLock struct {
	path string
	fd   *os.File
}

// ObtainLock takes the named lock, creating the lock file if needed.
// When another process already holds it, ObtainLock fails immediately with
// ErrLockHeld instead of blocking.
func (d *FSDirectory) ObtainLock(name string) (*FileLock, error) {
	if d.isClosed() {
		return nil, ErrDirectoryClosed
	}
	path := filepath.Join(d.path, name)
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, iofile.FilePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file: %s", path)
	}
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = fd.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrLockHeld
		}
		return nil, errors.Wrapf(err, "flock file: %s", path)
	}
	return &FileLock{path: path, fd: fd}, nil
}

// Path returns the lock file's path.
func (l *FileLock) Path() string {
	return l.path
}

// Release drops the lock. The lock file itself stays behind for the next
// holder. Releasing twice is a no-op.
func (l *FileLock) Release() error {
	if l.fd == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.fd.Fd()), unix.LOCK_UN)
	closeErr := l.fd.Close()
	l.fd = nil
	if unlockErr != nil {
		return errors.Wrapf(unlockErr, "funlock file: %s", l.path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "close lock file: %s", l.path)
	}
	return nil
}
