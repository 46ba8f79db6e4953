package internal

import (
	"errors"
	"fmt"
	"strings"
)

// KeyWidth is the fixed length of every normalized cache key.
const KeyWidth = 5

// KeyPad fills short keys up to KeyWidth.
const KeyPad = '\x00'

var ErrInvalidCapacity = errors.New("capacity must be a positive integer")

// NormalizeKey truncates key to its first KeyWidth bytes, or pads it with
// KeyPad up to KeyWidth. Two addresses sharing their first KeyWidth bytes
// normalize to the same key.
func NormalizeKey(key string) string {
	if len(key) >= KeyWidth {
		return key[:KeyWidth]
	}
	return key + strings.Repeat(string(KeyPad), KeyWidth-len(key))
}

// DisplayKey strips the padding added by NormalizeKey, for logs and tables.
func DisplayKey(key string) string {
	return strings.TrimRight(key, string(KeyPad))
}

func ValidateCapacity(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return nil
}
