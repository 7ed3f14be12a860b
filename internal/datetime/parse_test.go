package datetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday morning.
var now = time.Date(2026, time.October, 14, 10, 30, 0, 0, time.UTC)

func day(d, h, m int) time.Time {
	return time.Date(2026, time.October, d, h, m, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	tests := []struct {
		phrase string
		want   time.Time
	}{
		{"tonight", day(14, 21, 0)},
		{"tonight at 10", day(14, 10, 0)},
		{"tonight at 8", day(14, 8, 0)},
		{"tonight at 11:30pm", day(14, 23, 30)},
		{"tomorrow", day(15, 9, 0)},
		{"tomorrow at 3pm", day(15, 15, 0)},
		{"Tomorrow at 7:45 AM", day(15, 7, 45)},
		{"friday", day(16, 9, 0)},
		{"on wednesday", day(21, 9, 0)},
		{"monday at 8:15am", day(19, 8, 15)},
		{"at 5pm", day(14, 17, 0)},
		{"at 9am", day(15, 9, 0)},
		{"12am", day(15, 0, 0)},
		{"12pm", day(14, 12, 0)},
		{"in 5 minutes", now.Add(5 * time.Minute)},
		{"tomorrow in 5 minutes", now.Add(5 * time.Minute)},
		{"friday at 6pm in 2 minutes", now.Add(2 * time.Minute)},
		{"30 seconds", now.Add(30 * time.Second)},
		{"1 minute", now.Add(time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, ok := Parse(tt.phrase, now)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseRelativeIsExact(t *testing.T) {
	got, ok := Parse("in 5 minutes", now)
	require.True(t, ok)
	assert.Equal(t, int64(300000), got.Sub(now).Milliseconds())
}

func TestParseRelativeOverflow(t *testing.T) {
	for _, phrase := range []string{
		"in 99999999999 minutes",
		"in 9999999999999999 seconds",
		"tomorrow in 99999999999999999999 minutes",
	} {
		_, ok := Parse(phrase, now)
		assert.False(t, ok, phrase)
	}

	got, ok := Parse("in 100000 minutes", now)
	require.True(t, ok)
	assert.Equal(t, 100000*time.Minute, got.Sub(now))
}

func TestParseNoTime(t *testing.T) {
	for _, phrase := range []string{"no time info here", "", "at 45", "soon"} {
		_, ok := Parse(phrase, now)
		assert.False(t, ok, phrase)
	}
}

func TestParseKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2026, time.October, 14, 10, 0, 0, 0, loc)

	got, ok := Parse("tonight", local)
	require.True(t, ok)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 21, got.Hour())
	assert.Equal(t, 14, got.Day())
}

func TestExtractReminder(t *testing.T) {
	tests := []struct {
		body     string
		wantText string
		wantAt   time.Time
	}{
		{"call mom tomorrow at 5pm", "call mom", day(15, 17, 0)},
		{"Call Mom tomorrow", "Call Mom", day(15, 9, 0)},
		{"check in with bob at 5pm", "check in with bob", day(14, 17, 0)},
		{"take pills in 10 minutes", "take pills", now.Add(10 * time.Minute)},
		{"water the plants on friday", "water the plants", day(16, 9, 0)},
		{"stretch tonight", "stretch", day(14, 21, 0)},
		{"feed the cat 5pm", "feed the cat", day(14, 17, 0)},
		{"pay the rent and the bills tomorrow", "pay the rent and the bills", day(15, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			text, at, ok := ExtractReminder(tt.body, now)
			require.True(t, ok)
			assert.Equal(t, tt.wantText, text)
			assert.True(t, tt.wantAt.Equal(at), "want %s, got %s", tt.wantAt, at)
		})
	}
}

func TestExtractReminderWithoutTime(t *testing.T) {
	text, _, ok := ExtractReminder("  buy milk ", now)
	assert.False(t, ok)
	assert.Equal(t, "buy milk", text)

	text, _, ok = ExtractReminder("call 911", now)
	assert.False(t, ok)
	assert.Equal(t, "call 911", text)

	text, _, ok = ExtractReminder("buy bread and 5", now)
	assert.False(t, ok)
	assert.Equal(t, "buy bread and 5", text)

	text, _, ok = ExtractReminder("renew passport in 99999999999 minutes", now)
	assert.False(t, ok)
	assert.Equal(t, "renew passport in 99999999999 minutes", text)
}

func TestFormatting(t *testing.T) {
	at := day(16, 17, 5)
	assert.Equal(t, "Friday, 05:05 PM", Friendly(at))
	assert.Equal(t, "Oct 16, 05:05 PM", Short(at))
	assert.Equal(t, "2026-10-16T17:05", InputValue(at))

	back, err := ParseInputValue("2026-10-16T17:05", time.UTC)
	require.NoError(t, err)
	assert.True(t, at.Equal(back))
}
