package webapi

import (
	"net/url"
	"strconv"
	"strings"
)

const DefaultEngine = "bing"

var engines = map[string]struct {
	base  string
	label string
}{
	"bing":       {"https://www.bing.com/search?q=", "Bing.com"},
	"google":     {"https://www.google.com/search?q=", "Google"},
	"duckduckgo": {"https://duckduckgo.com/?q=", "DuckDuckGo"},
	"brave":      {"https://search.brave.com/search?q=", "Brave"},
	"ecosia":     {"https://www.ecosia.org/search?q=", "Ecosia"},
}

// KnownEngine reports whether name is a supported search engine.
func KnownEngine(name string) bool {
	_, ok := engines[name]
	return ok
}

// SearchURL builds the results link for q. Unknown engines fall back to Bing.
func SearchURL(engine, q string) string {
	e, ok := engines[engine]
	if !ok {
		e = engines[DefaultEngine]
	}
	return e.base + url.QueryEscape(q)
}

// LinkLabel is the text of the "more results" affordance.
func LinkLabel(engine string) string {
	e, ok := engines[engine]
	if !ok {
		e = engines[DefaultEngine]
	}
	return "See more results on " + e.label
}

// WeatherURL is the MSN forecast page for p.
func WeatherURL(p Place) string {
	where := url.PathEscape(p.Name)
	if p.Admin1 != "" {
		where += "," + url.PathEscape(p.Admin1)
	}
	return "https://www.msn.com/en-us/weather/forecast/in-" + where +
		"?lat=" + strconv.FormatFloat(p.Latitude, 'f', -1, 64) +
		"&lon=" + strconv.FormatFloat(p.Longitude, 'f', -1, 64) +
		"&ocid=ansmsnweather"
}

var abbreviations = map[string]string{
	"est": "America/New_York",
	"edt": "America/New_York",
	"cst": "America/Chicago",
	"cdt": "America/Chicago",
	"mst": "America/Denver",
	"mdt": "America/Denver",
	"pst": "America/Los_Angeles",
	"pdt": "America/Los_Angeles",
	"gmt": "Etc/GMT",
	"utc": "Etc/UTC",
	"bst": "Europe/London",
}

// ZoneForAbbreviation maps a handful of common time zone abbreviations to
// IANA names.
func ZoneForAbbreviation(s string) (string, bool) {
	z, ok := abbreviations[strings.ToLower(strings.TrimSpace(s))]
	return z, ok
}
