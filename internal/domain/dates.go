package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for every date field that is
// not a full timestamp (stage dates, due dates, expense dates).
const DateLayout = "2006-01-02"

// FormatDate renders t as a calendar date in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reads a calendar date. A full RFC 3339 timestamp is also
// accepted and reduced to the date it names in its own offset. Anything else,
// including a valid date followed by other text, is rejected. The result is
// midnight UTC so that day arithmetic between two parsed dates is exact.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return CivilDate(ts), true
}

// CivilDate strips the clock from t, keeping t's calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from `from` to `to`.
// Negative when `to` is earlier.
func DaysBetween(from, to time.Time) int {
	return int(CivilDate(to).Sub(CivilDate(from)).Hours() / 24)
}

// MonthKey returns the "YYYY-MM" bucket of a calendar date string.
func MonthKey(date string) (string, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

// ID prefixes per record kind.
const (
	ClientIDPrefix     = "cli"
	ServiceIDPrefix    = "srv"
	ExpenseIDPrefix    = "exp"
	AttachmentIDPrefix = "att"
)

// NewID builds a record id from the creation instant. The random suffix keeps
// ids unique when two records are created in the same millisecond.
func NewID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}
