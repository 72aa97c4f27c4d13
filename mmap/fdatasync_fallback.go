//go:build windows || (unix && !plan9 && !linux)

package mmap

import "os"

func fdatasync(f *os.File) error {
	return f.Sync()
}
