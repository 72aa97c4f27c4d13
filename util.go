package cstore

import (
	"encoding/hex"
	"log/slog"
)

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}

func keyAttr(k StorageKey) slog.Attr {
	return slog.String("key", k.Name())
}
