// Package datetime turns spoken time phrases ("tomorrow at 5pm", "in 10
// minutes", "friday") into absolute timestamps.
package datetime

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe    = regexp.MustCompile(`(\d{1,2})(:\d{2})?\s?(am|pm)?`)
	relativeRe = regexp.MustCompile(`(\d+)\s*(minute|second)s?`)
)

// Sunday first, matching time.Weekday.
var weekdays = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

const (
	tonightHour = 21
	defaultHour = 9
)

// Parse resolves phrase relative to now. The result is in now's location.
// ok is false when the phrase carries no recognizable time information.
//
// A relative offset ("in 5 minutes") always wins over day words found in
// the same phrase.
func Parse(phrase string, now time.Time) (t time.Time, ok bool) {
	text := strings.ToLower(phrase)

	date := now
	dayFound := false
	tonight := false

	switch {
	case strings.Contains(text, "tonight"):
		date = at(now, tonightHour, 0)
		dayFound = true
		tonight = true
	case strings.Contains(text, "tomorrow"):
		date = now.AddDate(0, 0, 1)
		dayFound = true
	default:
		for i, name := range weekdays {
			if !strings.Contains(text, name) {
				continue
			}
			diff := i - int(now.Weekday())
			if diff <= 0 {
				diff += 7
			}
			date = now.AddDate(0, 0, diff)
			dayFound = true
			break
		}
	}

	if d, found, valid := relative(text); found {
		if !valid {
			return time.Time{}, false
		}
		return now.Add(d), true
	}

	// An explicit clock sets the hour as given, so "tonight at 8" is 08:00.
	if hour, minute, clockFound := clock(text); clockFound {
		date = at(date, hour, minute)
		if date.Before(now) && !dayFound {
			date = date.AddDate(0, 0, 1)
		}
		return date, true
	}

	if !dayFound {
		return time.Time{}, false
	}
	if !tonight {
		date = at(date, defaultHour, 0)
	}
	return date, true
}

func clock(text string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2][1:])
		if err != nil {
			return 0, 0, false
		}
	}

	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// relative finds an "N minutes" or "N seconds" offset. valid is false when
// the offset does not fit in a time.Duration.
func relative(text string) (d time.Duration, found, valid bool) {
	m := relativeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false, false
	}
	unit := time.Minute
	if m[2] == "second" {
		unit = time.Second
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n > math.MaxInt64/int64(unit) {
		return 0, true, false
	}
	return time.Duration(n) * unit, true, true
}

func at(t time.Time, hour, minute int) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, t.Location())
}
