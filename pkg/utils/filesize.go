package utils

import (
	"fmt"

	"github.com/docker/go-units"
)

const (
	B   = 1
	KiB = 1024 * B
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

// FormatBytes converts bytes to a human-readable binary size such as "1.5MiB"
func FormatBytes(bytes uint64) string {
	if bytes < KiB {
		return fmt.Sprintf("%d B", bytes)
	}
	return units.BytesSize(float64(bytes))
}

// ParseSize converts a human-readable size to bytes. Both "100MB" and
// "100MiB" are read as binary multiples.
func ParseSize(size string) (uint64, error) {
	n, err := units.RAMInBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", size)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", size)
	}
	return uint64(n), nil
}
