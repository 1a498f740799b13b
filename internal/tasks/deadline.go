package tasks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// FormatDeadline maps a coarse (date-phrase, time-phrase) pair to a
// natural-language deadline relative to now. Unparseable phrases pass
// through unchanged.
func FormatDeadline(dueDate, dueTime string, now time.Time) string {
	deadline, hasTime, ok := resolveDeadline(dueDate, dueTime, now)
	if !ok {
		return passthrough(dueDate, dueTime)
	}

	daysDiff := daysBetween(now, deadline)
	var datePart string
	switch {
	case daysDiff == 0:
		datePart = "Today"
	case daysDiff == 1:
		datePart = "Tomorrow"
	case daysDiff > 1 && daysDiff <= 7:
		// Same weekday a week out reads as "next" once today's copy of
		// that time has already passed. Equal-to-now counts as not passed.
		if deadline.Weekday() == now.Weekday() && clockBefore(deadline, now) {
			datePart = "next " + deadline.Weekday().String()
		} else {
			datePart = "this " + deadline.Weekday().String()
		}
	case daysDiff > 7 && daysDiff <= 14:
		datePart = "next " + deadline.Weekday().String()
	default:
		// Far future and already-past dates both read as the literal date.
		datePart = deadline.Format("2006-01-02")
	}

	if hasTime {
		return datePart + " at " + formatClock(deadline)
	}
	return datePart
}

// ResolveDeadline returns the concrete anchor time for a coarse deadline,
// or ok=false when the date phrase cannot be interpreted. Date-only
// deadlines anchor at midnight of the resolved day with hasTime=false, so
// callers comparing against the clock can tell a real time from the anchor.
func ResolveDeadline(dueDate, dueTime string, now time.Time) (deadline time.Time, hasTime, ok bool) {
	return resolveDeadline(dueDate, dueTime, now)
}

func resolveDeadline(dueDate, dueTime string, now time.Time) (time.Time, bool, bool) {
	date, ok := resolveDate(dueDate, now)
	if !ok {
		return time.Time{}, false, false
	}

	hour, minute, rollForward, hasTime := resolveClock(dueTime, dueDate)
	deadline := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, now.Location())
	if rollForward {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return deadline, hasTime, true
}

func resolveDate(dueDate string, now time.Time) (time.Time, bool) {
	phrase := strings.ToLower(strings.TrimSpace(dueDate))
	switch phrase {
	case "today":
		return now, true
	case "tomorrow":
		return now.AddDate(0, 0, 1), true
	}
	if target, ok := weekdays[phrase]; ok {
		daysUntil := (int(target) - int(now.Weekday()) + 7) % 7
		return now.AddDate(0, 0, daysUntil), true
	}
	if parsed, err := time.Parse("2006-01-02", strings.TrimSpace(dueDate)); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

var (
	clock24Re = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12Re = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
)

// resolveClock maps a time phrase to an hour/minute anchor. Midnight on a
// "Today" deadline rolls to the start of the next day. The last return
// reports whether a concrete time was resolved at all.
func resolveClock(dueTime, dueDate string) (int, int, bool, bool) {
	phrase := strings.ToLower(strings.TrimSpace(dueTime))
	switch phrase {
	case "morning":
		return 9, 0, false, true
	case "afternoon":
		return 14, 0, false, true
	case "evening", "tonight":
		return 21, 0, false, true
	case "noon":
		return 12, 0, false, true
	case "midnight":
		roll := strings.EqualFold(strings.TrimSpace(dueDate), "today")
		return 0, 0, roll, true
	}
	if m := clock24Re.FindStringSubmatch(phrase); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour <= 23 && minute <= 59 {
			return hour, minute, false, true
		}
	}
	if m := clock12Re.FindStringSubmatch(phrase); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute <= 59 {
			if m[3] == "pm" && hour != 12 {
				hour += 12
			}
			if m[3] == "am" && hour == 12 {
				hour = 0
			}
			return hour, minute, false, true
		}
	}
	return 0, 0, false, false
}

func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

func passthrough(dueDate, dueTime string) string {
	if unknownPhrase(dueTime) {
		return strings.TrimSpace(dueDate)
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", dueDate, dueTime))
}

func unknownPhrase(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "none":
		return true
	}
	return false
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(toDay.Sub(fromDay).Hours() / 24)
}

func clockBefore(a, b time.Time) bool {
	aMinutes := a.Hour()*60 + a.Minute()
	bMinutes := b.Hour()*60 + b.Minute()
	return aMinutes < bMinutes
}
