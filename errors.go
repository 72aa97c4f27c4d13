package cstore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable is returned by a strict load of a key that holds no record.
	ErrUnavailable = errors.New("no record stored")

	// ErrNoStore is returned when flushing a map that is not attached to a Store,
	// e.g. one decoded as a nested value.
	ErrNoStore = errors.New("map is not attached to a store")

	ErrClosed = errors.New("host closed")
)

// DecodeError reports bytes that do not parse as a well-formed encoding.
type DecodeError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func decodeErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DecodeError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s at %d: %v: (%d) %x", e.Msg, e.Off, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x", e.Msg, e.Off, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s at %d: %v: (%d) %x...%x", e.Msg, e.Off, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x...%x", e.Msg, e.Off, n, p, s)
		}
	}
}

// KeyError ties a failure to the storage key and operation it happened in.
type KeyError struct {
	Key StorageKey
	Op  string
	Msg string
	Err error
}

func keyErrf(key StorageKey, op string, err error, format string, args ...any) error {
	var msg string
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &KeyError{key, op, msg, err}
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func (e *KeyError) Error() string {
	var buf strings.Builder
	buf.WriteString("cstore: ")
	if e.Op != "" {
		buf.WriteString(e.Op)
		buf.WriteByte(' ')
	}
	buf.WriteString(e.Key.Name())
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
