package nlu

import (
	"regexp"
	"strings"

	"voxbar/internal/action"
)

var (
	drumrollRe      = regexp.MustCompile(`^(drum ?roll)(,)?( please)?(!|\.|\?)?$`)
	listRemindersRe = regexp.MustCompile(`(show|what are|list|do i have any|my) reminders`)
	reminderRe      = regexp.MustCompile(`^(?:remind me(?: to)?|create a reminder(?: for)?|set a reminder(?: to| for)?)\s(.+)`)
	bareReminderRe  = regexp.MustCompile(`^(set a reminder|create a reminder|remind me)$`)
	openAppRe       = regexp.MustCompile(`^(?:open|launch|start) (.+)`)
	weatherRe       = regexp.MustCompile(`(?:what's|how's|what is) the weather(?: in| for| like in)?\s+(.+)`)
	locationTimeRe  = regexp.MustCompile(`(?:what's|what is) the time (?:in|for|at) (.+)`)
	localTimeRe     = regexp.MustCompile(`what(?:'s| is) the time|what time is it`)
	dateRe          = regexp.MustCompile(`(?:what's|what is) (?:the date|today's date)|what day is it|what's today`)
	askCalcRe       = regexp.MustCompile(`(?i)^(?:what is|calculate|compute) ([\d\s.+\-*/(),]+)\??$`)
	bareCalcRe      = regexp.MustCompile(`^[\d\s.+\-*/(),]+$`)
	jokeRe          = regexp.MustCompile(`(tell me a|give me a|say a) joke`)
	retiledRe       = regexp.MustCompile(`retiled`)
	versionRe       = regexp.MustCompile(`(what's your|what) version|app version`)
	identityRe      = regexp.MustCompile(`who are you\??`)
	affiliationRe   = regexp.MustCompile(`are you official\??`)
	capabilitiesRe  = regexp.MustCompile(`what can you do|what are your skills|help|what can i ask you\??`)
	flirtRe         = regexp.MustCompile(`marry me\??`)
	inappropriateRe = regexp.MustCompile(`(hide|dispose of) a body\??`)
	statusRe        = regexp.MustCompile(`^(what's up|sup|how's it going|how are you)\??$`)
	thanksRe        = regexp.MustCompile(`^(thanks|thank you|thx|ty)\b(.+)?$`)
	farewellRe      = regexp.MustCompile(`^(bye|goodbye|see ya|later|cya|see you later)(!|\.)?$`)
	helloWorldRe    = regexp.MustCompile(`^(?:hello|hi|hey),?\s+world\s*[!.?]*$`)
	greetingRe      = regexp.MustCompile(`^(hello|hi|hey|yo|heya|hey there)(!|\.)?$`)
)

// Rules is the dispatch table. Position is priority.
var Rules = []Rule{
	{Intent: WebSearch, Match: webSearchMode},
	{Intent: CustomAction, Match: customAction},
	{Intent: Drumroll, Match: pattern(drumrollRe)},
	{Intent: ListReminders, Match: pattern(listRemindersRe)},
	{Intent: SetReminder, Match: setReminder},
	{Intent: OpenApp, Match: capture(openAppRe, KeyApp, nil)},
	{Intent: Weather, Match: capture(weatherRe, KeyLocation, trimQuestion)},
	{Intent: LocationTime, Match: capture(locationTimeRe, KeyLocation, trimQuestion)},
	{Intent: LocalTime, Match: pattern(localTimeRe)},
	{Intent: Date, Match: pattern(dateRe)},
	{Intent: Calculate, Match: calculate},
	{Intent: Joke, Match: pattern(jokeRe)},
	{Intent: Retiled, Match: pattern(retiledRe)},
	{Intent: Version, Match: pattern(versionRe)},
	{Intent: Identity, Match: pattern(identityRe)},
	{Intent: Affiliation, Match: pattern(affiliationRe)},
	{Intent: Capabilities, Match: pattern(capabilitiesRe)},
	{Intent: Flirt, Match: pattern(flirtRe)},
	{Intent: Inappropriate, Match: pattern(inappropriateRe)},
	{Intent: Status, Match: pattern(statusRe)},
	{Intent: Thanks, Match: pattern(thanksRe)},
	{Intent: Farewell, Match: pattern(farewellRe)},
	{Intent: HelloWorld, Match: pattern(helloWorldRe)},
	{Intent: Greeting, Match: pattern(greetingRe)},
	{Intent: WebSearch, Match: webSearchMode},
}

func webSearchMode(_ Query, c Context) (map[string]string, bool) {
	return nil, c.WebSearch
}

func customAction(q Query, c Context) (map[string]string, bool) {
	a, ok := action.Match(c.Actions, q.Lower)
	if !ok {
		return nil, false
	}
	return map[string]string{KeyTrigger: a.Trigger}, true
}

// setReminder keeps the body in the user's casing so the reminder text reads
// the way it was typed.
func setReminder(q Query, _ Context) (map[string]string, bool) {
	if bareReminderRe.MatchString(q.Lower) {
		return map[string]string{KeyBody: ""}, true
	}
	m := reminderRe.FindStringSubmatchIndex(q.Lower)
	if m == nil {
		return nil, false
	}
	src := q.Raw
	if len(src) != len(q.Lower) {
		src = q.Lower
	}
	return map[string]string{KeyBody: strings.TrimSpace(src[m[2]:m[3]])}, true
}

func calculate(q Query, _ Context) (map[string]string, bool) {
	if m := askCalcRe.FindStringSubmatch(q.Raw); m != nil {
		return map[string]string{KeyExpr: m[1]}, true
	}
	if bareCalcRe.MatchString(q.Raw) {
		return map[string]string{KeyExpr: q.Raw}, true
	}
	return nil, false
}

func trimQuestion(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(s, "?"))
}
