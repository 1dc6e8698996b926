package loader

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var geoRe = regexp.MustCompile(`\(([^,]+), ([^)]+)\)`)

// Accepted Date layouts. The published file carries a time of day after the
// date; it is discarded.
var dateLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Monday first, matching DayOfWeek numbering.
var weekdayNames = [...]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// BinarizeFlag maps a substance marker to 1 when present and 0 otherwise.
// "Y" (any case) and "1" count as present, so feeding a binarized value back
// in returns it unchanged.
func BinarizeFlag(raw string) uint8 {
	switch strings.TrimSpace(raw) {
	case "Y", "y", "1":
		return 1
	}
	return 0
}

// ExtractCoordinates parses the "(lat, lon)" pair embedded in a geo string.
// Both results are nil unless both numbers parse.
func ExtractCoordinates(geo string) (lat, lon *float64) {
	m := geoRe.FindStringSubmatch(geo)
	if m == nil {
		return nil, nil
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	if err != nil || math.IsNaN(la) || math.IsInf(la, 0) {
		return nil, nil
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
	if err != nil || math.IsNaN(lo) || math.IsInf(lo, 0) {
		return nil, nil
	}
	return &la, &lo
}

// ParseDate parses a MM/DD/YYYY date, with or without a trailing time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Quarter returns the calendar quarter (1-4) of month m (1-12).
func Quarter(m int) int { return (m-1)/3 + 1 }

// DayOfWeek numbers weekdays from 0 (Monday) to 6 (Sunday).
func DayOfWeek(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }

// MonthName returns the English name of month m (1-12), or "" when out of
// range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m-1]
}

// MonthNames returns the twelve month names in calendar order.
func MonthNames() []string { return append([]string(nil), monthNames[:]...) }

// WeekdayName returns the name of weekday d (0=Monday), or "" when out of
// range.
func WeekdayName(d int) string {
	if d < 0 || d > 6 {
		return ""
	}
	return weekdayNames[d]
}

// WeekdayNames returns the weekday names from Monday to Sunday.
func WeekdayNames() []string { return append([]string(nil), weekdayNames[:]...) }

// parseAge returns the age in a cell, ok=false for an empty cell.
func parseAge(s string) (age float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.New("age is not a finite number")
	}
	if v < 0 {
		return 0, false, errors.New("negative age")
	}
	return v, true, nil
}
