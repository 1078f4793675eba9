package commands

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	quotedRe   = regexp.MustCompile(`"([^"]+)"|'([^']+)'|«([^»]+)»`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?\b`)
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	atHourRe   = regexp.MustCompile(`a las (\d{1,2})\b`)
	projectRe  = regexp.MustCompile(`(?i)proyecto\s+([^\s:,.;]+)`)
)

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miércoles": time.Wednesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sábado":    time.Saturday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
}

func containsAny(s string, keywords ...string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// quotedText returns the first quoted substring of the message, if any.
func quotedText(msg string) string {
	m := quotedRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

// projectReference returns the word following "proyecto", if any.
func projectReference(msg string) string {
	m := projectRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], ":,.;")
}

// resolveDate finds an explicit or relative date in the message. The
// returned time is midnight local; ok is false when nothing matched.
func resolveDate(msg string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(msg)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "pasado mañana"), strings.Contains(lower, "pasado manana"):
		return midnight.AddDate(0, 0, 2), true
	case strings.Contains(lower, "mañana"), strings.Contains(lower, "manana"):
		return midnight.AddDate(0, 0, 1), true
	case strings.Contains(lower, "hoy"):
		return midnight, true
	}

	for name, wd := range weekdays {
		if !strings.Contains(lower, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return midnight.AddDate(0, 0, ahead), true
	}

	if m := dayMonthRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
		}
	}

	return time.Time{}, false
}

// resolveClock finds an explicit time of day ("15:30", "a las 15").
func resolveClock(msg string) (hour, minute int, ok bool) {
	lower := strings.ToLower(msg)

	if m := clockRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 24 && min < 60 {
			return h, min, true
		}
	}
	if m := atHourRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 24 {
			return h, 0, true
		}
	}
	return 0, 0, false
}
