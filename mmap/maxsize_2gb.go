//go:build 386 || arm || ppc || mips || mipsle

package mmap

// MaxSize is the largest file that Map accepts.
const MaxSize = 0x7FFFFFFF // 2GB
