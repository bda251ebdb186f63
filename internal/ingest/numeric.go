package ingest

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeCount turns a raw counter field into a non-negative integer.
// Unparseable or empty values count as zero. Negative values are taken as
// magnitudes: the daily reports occasionally carry negative entries and they
// are added to totals by absolute value, never subtracted.
func NormalizeCount(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return abs(n)
	}

	// some reports write counters as "12.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0
	}
	return abs(int64(f))
}

func abs(n int64) int64 {
	if n < 0 {
		if n == math.MinInt64 {
			return math.MaxInt64
		}
		return -n
	}
	return n
}
