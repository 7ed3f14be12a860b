package datetime

import (
	"regexp"
	"strings"
	"time"
)

var (
	// Last " at|on|in " split, used when no clean trailing time phrase exists.
	connectorRe = regexp.MustCompile(`(?i)^(.+)( at | on | in )(.+)$`)
	numericRe   = regexp.MustCompile(`^\d{1,2}(:\d{2})?(am|pm)?$|^\d+$`)
)

// timeWords may appear in a trailing time phrase. Every word except a bare
// number is an anchor: a suffix of plain numbers alone is not a time.
var timeWords = map[string]bool{
	"at": true, "on": true, "in": true, "by": true,
	"tonight": true, "tomorrow": true,
	"am": true, "pm": true,
	"minute": true, "minutes": true, "second": true, "seconds": true,
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

var bareNumberRe = regexp.MustCompile(`^\d+(:\d{2})?$`)

// ExtractReminder splits a reminder body such as "call mom tomorrow at 5pm"
// into its text ("call mom") and the time it names. ok is false when no time
// could be found, in which case text is the whole body.
//
// The leftmost suffix made only of time words wins, so "check in with bob
// at 5pm" keeps "check in with bob" as its text.
func ExtractReminder(body string, now time.Time) (text string, at time.Time, ok bool) {
	body = strings.TrimSpace(body)

	for _, i := range wordStarts(body) {
		if i == 0 {
			continue
		}
		suffix := body[i:]
		if !isTimePhrase(suffix) {
			continue
		}
		t, found := Parse(suffix, now)
		if !found {
			continue
		}
		prefix := strings.TrimSpace(body[:i])
		if prefix == "" {
			continue
		}
		return prefix, t, true
	}

	if m := connectorRe.FindStringSubmatch(body); m != nil {
		if t, found := Parse(strings.TrimSpace(m[3]), now); found {
			if prefix := strings.TrimSpace(m[1]); prefix != "" {
				return prefix, t, true
			}
		}
	}

	return body, time.Time{}, false
}

func wordStarts(s string) []int {
	var starts []int
	inWord := false
	for i, r := range s {
		space := r == ' ' || r == '\t'
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
	}
	return starts
}

func isTimePhrase(s string) bool {
	anchored := false
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?")
		if w == "" {
			continue
		}
		switch {
		case timeWords[w]:
			anchored = true
		case bareNumberRe.MatchString(w):
		case numericRe.MatchString(w):
			anchored = true
		default:
			return false
		}
	}
	return anchored
}

// Friendly renders t the way reminder confirmations speak it, e.g.
// "Friday, 05:00 PM".
func Friendly(t time.Time) string {
	return t.Format("Monday, 03:04 PM")
}

// Short is the compact form used in reminder lists, e.g. "Oct 16, 05:00 PM".
func Short(t time.Time) string {
	return t.Format("Jan 2, 03:04 PM")
}

// InputValue formats t for a datetime-local form field.
func InputValue(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}

// ParseInputValue is the inverse of InputValue, interpreted in loc.
func ParseInputValue(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02T15:04", strings.TrimSpace(s), loc)
}
