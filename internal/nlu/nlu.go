// Package nlu turns a typed query into an intent using a fixed, ordered table
// of pattern rules. The first rule that matches wins.
package nlu

import (
	"regexp"
	"strings"

	"voxbar/internal/action"
)

type Intent string

const (
	WebSearch     Intent = "web_search"
	CustomAction  Intent = "custom_action"
	Drumroll      Intent = "drumroll"
	ListReminders Intent = "list_reminders"
	SetReminder   Intent = "set_reminder"
	OpenApp       Intent = "open_app"
	Weather       Intent = "weather"
	LocationTime  Intent = "location_time"
	LocalTime     Intent = "local_time"
	Date          Intent = "date"
	Calculate     Intent = "calculate"
	Joke          Intent = "joke"
	Retiled       Intent = "retiled"
	Version       Intent = "version"
	Identity      Intent = "identity"
	Affiliation   Intent = "affiliation"
	Capabilities  Intent = "capabilities"
	Flirt         Intent = "flirt"
	Inappropriate Intent = "inappropriate"
	Status        Intent = "status"
	Thanks        Intent = "thanks"
	Farewell      Intent = "farewell"
	HelloWorld    Intent = "hello_world"
	Greeting      Intent = "greeting"
	Unknown       Intent = "unknown"
)

// Entity keys.
const (
	KeyTrigger  = "trigger"
	KeyBody     = "body"
	KeyApp      = "app"
	KeyLocation = "location"
	KeyExpr     = "expr"
)

type Result struct {
	Intent   Intent            `json:"intent"`
	Entities map[string]string `json:"entities"`
	Query    string            `json:"query"`
}

// Context is the user state some rules depend on.
type Context struct {
	WebSearch bool
	Actions   []action.CustomAction
}

// Query is the normalized input handed to matchers. Raw keeps the user's
// casing; Lower is used for matching.
type Query struct {
	Raw   string
	Lower string
}

func NewQuery(s string) Query {
	raw := strings.TrimSpace(s)
	return Query{Raw: raw, Lower: strings.ToLower(raw)}
}

// Rule pairs an intent with its matcher. A matcher reports whether it
// applies and any entities it pulled out of the query.
type Rule struct {
	Intent Intent
	Match  func(q Query, c Context) (map[string]string, bool)
}

// Classify runs q through Rules. It always returns a result; nothing matched
// means Unknown, or WebSearch when web search is on.
func Classify(s string, c Context) Result {
	q := NewQuery(s)
	for _, r := range Rules {
		if ents, ok := r.Match(q, c); ok {
			if ents == nil {
				ents = map[string]string{}
			}
			return Result{Intent: r.Intent, Entities: ents, Query: q.Raw}
		}
	}
	return Result{Intent: Unknown, Entities: map[string]string{}, Query: q.Raw}
}

// Order lists the intents of Rules in priority order.
func Order() []Intent {
	out := make([]Intent, len(Rules))
	for i, r := range Rules {
		out[i] = r.Intent
	}
	return out
}

func pattern(re *regexp.Regexp) func(Query, Context) (map[string]string, bool) {
	return func(q Query, _ Context) (map[string]string, bool) {
		return nil, re.MatchString(q.Lower)
	}
}

// capture matches against the lowercased query and stores group 1 under key.
func capture(re *regexp.Regexp, key string, clean func(string) string) func(Query, Context) (map[string]string, bool) {
	return func(q Query, _ Context) (map[string]string, bool) {
		m := re.FindStringSubmatch(q.Lower)
		if m == nil {
			return nil, false
		}
		v := strings.TrimSpace(m[1])
		if clean != nil {
			v = clean(v)
		}
		return map[string]string{key: v}, true
	}
}
