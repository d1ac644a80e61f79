package domain

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order when parsing scan timestamps.
// Python's isoformat() emits the zone-less variants.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Zone-less values are UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	v, ok := Normalize(FieldTimestamp, raw)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareTimestamps orders two timestamp strings.
// Absent values sort before present ones. When both parse they are compared
// as instants; otherwise the trimmed strings are compared lexicographically.
func CompareTimestamps(a, b string) int {
	av, aok := Normalize(FieldTimestamp, a)
	bv, bok := Normalize(FieldTimestamp, b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	at, aParsed := ParseTimestamp(av)
	bt, bParsed := ParseTimestamp(bv)
	if aParsed && bParsed {
		return at.Compare(bt)
	}
	return strings.Compare(av, bv)
}

// LaterTimestamp reports whether candidate is present and strictly later than current
func LaterTimestamp(candidate, current string) bool {
	if IsAbsent(candidate) {
		return false
	}
	return CompareTimestamps(candidate, current) > 0
}
