package normalize

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// zoneSuffix matches a trailing Z or numeric offset (+hh, +hhmm, +hh:mm),
// optionally followed by a zone abbreviation as printed by time.Time.String.
var zoneSuffix = regexp.MustCompile(`\s*(?:Z|[+-]\d{2}(?::?\d{2})?)(?:\s+[A-Za-z]+)?$`)

// ShiftHours derives worked hours from a start and end timestamp.
//
// Both inputs may be full timestamps or bare times of day; any date part is
// discarded. When the end falls before the start the shift is taken to wrap
// past midnight. Break minutes are subtracted and the result is never
// negative. Hours are rounded to two decimals. Missing or unparsable input
// yields (0, false).
func ShiftHours(start, end string, breakMinutes float64) (float64, bool) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return 0, false
	}
	startMin, ok := minuteOfDay(start)
	if !ok {
		slog.Warn("Unparsable shift start time", "start", start)
		return 0, false
	}
	endMin, ok := minuteOfDay(end)
	if !ok {
		slog.Warn("Unparsable shift end time", "end", end)
		return 0, false
	}
	if endMin < startMin {
		endMin += minutesPerDay
	}
	worked := endMin - startMin - breakMinutes
	if worked < 0 {
		worked = 0
	}
	return Round2(worked / 60), true
}

// minuteOfDay parses the time-of-day part of an ISO-like timestamp.
func minuteOfDay(s string) (float64, bool) {
	s = zoneSuffix.ReplaceAllString(strings.TrimSpace(s), "")
	if i := strings.LastIndexAny(s, "T "); i >= 0 {
		s = s[i+1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	var sec float64
	if len(parts) == 3 {
		sec, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, false
		}
	}
	// 24 is only valid as the end-of-day marker 24:00.
	if h == 24 && (m > 0 || sec > 0) {
		return 0, false
	}
	return float64(h*60+m) + sec/60, true
}
