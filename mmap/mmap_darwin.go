package mmap

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

func mMap(fd *os.File, writable bool, size int64) ([]byte, error) {
	mType := unix.PROT_READ
	if writable {
		mType |= unix.PROT_WRITE
	}
	return unix.Mmap(int(fd.Fd()), 0, int(size), mType, unix.MAP_SHARED)
}

func mUnmap(b []byte) error {
	return unix.Munmap(b)
}

// darwin has no Madvise wrapper in x/sys, so issue the syscall directly.
func mAdvise(b []byte, randomRead bool) error {
	advice := unix.MADV_NORMAL
	if randomRead {
		advice = unix.MADV_RANDOM
	}
	_, _, err := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])),
		uintptr(len(b)), uintptr(advice))
	if err != 0 {
		return err
	}
	return nil
}

func mSync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}
