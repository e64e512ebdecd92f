// Package datasize provides a byte-count type for configuration properties
// such as "512MiB", "10Gi" or "1GB".
package datasize

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size is a number of bytes that unmarshals from human-readable strings.
//
// Supported formats:
//   - Plain numbers: 1024, 1073741824
//   - Binary units (x1024): Ki/KiB, Mi/MiB, Gi/GiB, Ti/TiB
//   - Decimal units (x1000): K/KB, M/MB, G/GB, T/TB
//   - Bytes: B
type Size uint64

// Common sizes.
const (
	B  Size = 1
	KB Size = 1000
	MB Size = 1000 * KB
	GB Size = 1000 * MB
	TB Size = 1000 * GB

	KiB Size = 1024
	MiB Size = 1024 * KiB
	GiB Size = 1024 * MiB
	TiB Size = 1024 * GiB
)

// textUnits lists the suffixes MarshalText may use, largest first.
var textUnits = []struct {
	size   Size
	suffix string
}{
	{1 << 60, "EiB"},
	{1e18, "EB"},
	{1 << 50, "PiB"},
	{1e15, "PB"},
	{TiB, "TiB"},
	{TB, "TB"},
	{GiB, "GiB"},
	{GB, "GB"},
	{MiB, "MiB"},
	{MB, "MB"},
	{KiB, "KiB"},
	{KB, "KB"},
}

// Parse converts a human-readable size into a Size. Units are case
// insensitive and may be separated from the number by whitespace.
func Parse(s string) (Size, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty data size")
	}
	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid data size %q: %w", s, err)
	}
	return Size(n), nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Size {
	size, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return size
}

// UnmarshalText implements encoding.TextUnmarshaler so Size can be decoded
// by mapstructure and yaml.
func (s *Size) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = size
	return nil
}

// MarshalText implements encoding.TextMarshaler. The text is exact: it
// uses the largest unit that divides the size evenly, for example "1MiB"
// or "1MB", and plain bytes otherwise, so Parse returns the same Size.
func (s Size) MarshalText() ([]byte, error) {
	if s != 0 {
		for _, u := range textUnits {
			if s%u.size == 0 {
				return []byte(fmt.Sprintf("%d%s", s/u.size, u.suffix)), nil
			}
		}
	}
	return []byte(fmt.Sprintf("%d", uint64(s))), nil
}

// String renders the size with IEC units for display, for example
// "512 MiB". It may round; use MarshalText for a parseable form.
func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// Bytes returns the size as a uint64.
func (s Size) Bytes() uint64 {
	return uint64(s)
}

// Int64 returns the size as an int64, clamped to math.MaxInt64.
func (s Size) Int64() int64 {
	if s > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(s)
}
