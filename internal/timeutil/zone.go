package timeutil

import (
	"time"
	_ "time/tzdata" // tenant zones must resolve on minimal images
)

// DefaultZone is used when a tenant has no timezone configured (UTC+5:30)
var DefaultZone *time.Location

func init() {
	var err error
	DefaultZone, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		DefaultZone = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006"
)

// LoadZone resolves an IANA zone name, falling back to DefaultZone
func LoadZone(name string) *time.Location {
	if name == "" {
		return DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return DefaultZone
	}
	return loc
}

// Now returns the current time in the given zone
func Now(loc *time.Location) time.Time {
	if loc == nil {
		loc = DefaultZone
	}
	return time.Now().In(loc)
}

// StartOfDay returns 00:00:00 of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day in t's location
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// SameOrBeforeDay reports whether a's calendar date is on or before b's.
// a is projected into b's location first.
func SameOrBeforeDay(a, b time.Time) bool {
	return !StartOfDay(a.In(b.Location())).After(StartOfDay(b))
}

// AddDays adds n calendar days
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = DefaultZone
	}
	return time.ParseInLocation(DateLayout, value, loc)
}
