package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes. In the environment it accepts a plain
// integer or one with a kb, mb or gb suffix (1024-based, case-insensitive).
type ByteSize int64

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"b", 1},
}

// ParseByteSize parses strings such as "512", "100kb" or "1.5MB".
func ParseByteSize(s string) (ByteSize, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			mult = u.mult
			break
		}
	}
	if v == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size %q", s)
		}
		return ByteSize(n * mult), nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return ByteSize(f * float64(mult)), nil
}

// Int64 returns the size as a plain byte count.
func (b ByteSize) Int64() int64 { return int64(b) }

func (b ByteSize) String() string {
	n := int64(b)
	for _, u := range byteUnits[:3] {
		if n >= u.mult && n%u.mult == 0 {
			return strconv.FormatInt(n/u.mult, 10) + u.suffix
		}
	}
	return strconv.FormatInt(n, 10)
}
