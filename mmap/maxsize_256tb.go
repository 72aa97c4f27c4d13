//go:build amd64 || arm64 || loong64 || ppc64 || ppc64le || riscv64 || s390x || mips64 || mips64le

package mmap

// MaxSize is the largest file that Map accepts.
const MaxSize = 0xFFFFFFFFFFFF // 256TB
