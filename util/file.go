package util

import (
	"os"

	"github.com/pkg/errors"
)

// PathExist reports whether path names an existing file or directory.
func PathExist(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

// FileLength returns the current on-disk size of the file at path.
func FileLength(path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat file: %s", path)
	}
	return stat.Size(), nil
}

// SetFileLength truncates or extends the file at path to n bytes.
// Extension is sparse or zero-filled per platform convention.
func SetFileLength(path string, n int64) error {
	if err := os.Truncate(path, n); err != nil {
		return errors.Wrapf(err, "truncate file: %s", path)
	}
	return nil
}

// SyncDir fsyncs a directory so that entry creation and removal survive a
// crash. Required after creating, deleting or renaming files when the
// caller needs the directory entry itself to be durable.
func SyncDir(dir string) error {
	df, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "open dir: %s", dir)
	}
	if err := df.Sync(); err != nil {
		_ = df.Close()
		return errors.Wrapf(err, "sync dir: %s", dir)
	}
	if err := df.Close(); err != nil {
		return errors.Wrapf(err, "close dir: %s", dir)
	}
	return nil
}
