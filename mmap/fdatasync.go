package mmap

import "os"

// Fdatasync flushes the data written to f to stable storage, skipping
// metadata such as modification times where the OS allows it.
//
// Errors are not recoverable: after a failed sync, the kernel may consider the
// dirty pages clean, so the file contents on disk are unknown.
func Fdatasync(f *os.File) error {
	return fdatasync(f)
}
