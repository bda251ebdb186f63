package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// utcTimestamp parses a source timestamp and rebuilds it from its UTC
// calendar fields, dropping sub-second precision. Values without an offset
// are read as UTC.
func utcTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}
