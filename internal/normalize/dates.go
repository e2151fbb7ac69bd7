package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Russian genitive month names as they appear in long-form review dates
// ("30 марта 2025").
var monthsRU = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var (
	reDotted  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	reSlashed = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reLongRU  = regexp.MustCompile(`^(\d{1,2})\s+([а-яА-ЯёЁ]+)\s+(\d{4})`)
)

// ParseReviewDate converts a raw date string into a calendar date
// (midnight UTC). Formats are tried in order: DD.MM.YYYY, Russian
// long-form, ISO-8601, DD/MM/YYYY. The day always precedes the month.
func ParseReviewDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := reDotted.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[1], time.Month(mustAtoi(m[2])))
	}

	if m := reLongRU.FindStringSubmatch(s); m != nil {
		if month, ok := monthsRU[strings.ToLower(m[2])]; ok {
			return calendarDate(m[3], m[1], month)
		}
		return time.Time{}, false
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}

	if m := reSlashed.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[1], time.Month(mustAtoi(m[2])))
	}

	return time.Time{}, false
}

func calendarDate(year, day string, month time.Month) (time.Time, bool) {
	y := mustAtoi(year)
	d := mustAtoi(day)
	if month < time.January || month > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 31.02.2025.
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
