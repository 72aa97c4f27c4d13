//go:build unix

package mmap

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	var advice int
	var adviceName string
	if opt.Has(SequentialAccess) {
		advice, adviceName = syscall.MADV_SEQUENTIAL, "MADV_SEQUENTIAL"
	} else if opt.Has(RandomAccess) {
		advice, adviceName = syscall.MADV_RANDOM, "MADV_RANDOM"
	}
	if adviceName != "" {
		err = unix.Madvise(b, advice)
		// ENOSYS is fine, the mapping still works without the hint.
		if err != nil && err != syscall.ENOSYS {
			_ = unix.Munmap(b)
			return nil, fmt.Errorf("madvise(%s): %w", adviceName, err)
		}
	}

	return b, nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
