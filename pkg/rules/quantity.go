package rules

import (
	"strconv"
	"strings"
)

// Minimal resource-quantity comparison, enough to enforce the limit-floor
// invariant (an injected limit must never sit below the container's own
// request). Unparseable quantities compare as zero.

// cpuMillis parses a CPU quantity into millicores.
func cpuMillis(q string) float64 {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0
	}
	if strings.HasSuffix(q, "m") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(q, "m"), 64)
		if err != nil {
			return 0
		}
		return v
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 0
	}
	return v * 1000
}

var memorySuffixes = []struct {
	suffix string
	factor float64
}{
	{"Ki", 1 << 10},
	{"Mi", 1 << 20},
	{"Gi", 1 << 30},
	{"Ti", 1 << 40},
	{"k", 1e3},
	{"K", 1e3},
	{"M", 1e6},
	{"G", 1e9},
	{"T", 1e12},
}

// memoryBytes parses a memory quantity into bytes.
func memoryBytes(q string) float64 {
	q = strings.TrimSpace(q)
	for _, s := range memorySuffixes {
		if strings.HasSuffix(q, s.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(q, s.suffix), 64)
			if err != nil {
				return 0
			}
			return v * s.factor
		}
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 0
	}
	return v
}

func cpuExceeds(a, b string) bool {
	return cpuMillis(a) > cpuMillis(b)
}

func memoryExceeds(a, b string) bool {
	return memoryBytes(a) > memoryBytes(b)
}
