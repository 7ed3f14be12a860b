package vox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voxbar/internal/action"
	"voxbar/internal/calc"
	"voxbar/internal/choice"
	"voxbar/internal/nlu"
	"voxbar/internal/notify"
	"voxbar/internal/webapi"
)

type handler func(v *Vox, c *cycle, r nlu.Result)

func (v *Vox) table() map[nlu.Intent]handler {
	return map[nlu.Intent]handler{
		nlu.WebSearch:     (*Vox).webSearch,
		nlu.CustomAction:  (*Vox).customAction,
		nlu.Drumroll:      (*Vox).drumroll,
		nlu.ListReminders: (*Vox).listReminders,
		nlu.SetReminder:   (*Vox).setReminder,
		nlu.OpenApp:       (*Vox).openApp,
		nlu.Weather:       (*Vox).weather,
		nlu.LocationTime:  (*Vox).locationTime,
		nlu.LocalTime:     (*Vox).localTime,
		nlu.Date:          (*Vox).date,
		nlu.Calculate:     (*Vox).calculate,
		nlu.Joke:          (*Vox).joke,
		nlu.Retiled:       canned(textRetiled, true),
		nlu.Version:       (*Vox).version,
		nlu.Identity:      canned(textIdentity, false),
		nlu.Affiliation:   canned(textAffiliation, false),
		nlu.Capabilities:  canned(textCapabilities, false),
		nlu.Flirt:         canned(textFlirt, false),
		nlu.Inappropriate: (*Vox).inappropriate,
		nlu.Status:        canned(textStatus, false),
		nlu.Thanks:        pool(thanksReplies),
		nlu.Farewell:      pool(farewellReplies),
		nlu.HelloWorld:    canned(textHelloWorld, false),
		nlu.Greeting:      pool(greetingReplies),
		nlu.Unknown:       (*Vox).unknown,
	}
}

func canned(text string, link bool) handler {
	return func(v *Vox, c *cycle, _ nlu.Result) {
		r := Response{Text: text}
		if link {
			r.WebLink = v.webLink()
		}
		v.reply(c, r)
	}
}

func pool(texts []string) handler {
	return func(v *Vox, c *cycle, _ nlu.Result) {
		v.reply(c, Response{Text: v.pick(texts)})
	}
}

func (v *Vox) unknown(c *cycle, r nlu.Result) {
	v.reply(c, Response{Text: fmt.Sprintf(textNotUnderstood, r.Query)})
}

func (v *Vox) inappropriate(c *cycle, _ nlu.Result) {
	v.fail(c, Response{Text: textInappropriate})
}

func (v *Vox) webSearch(c *cycle, r nlu.Result) {
	url := webapi.SearchURL(v.Settings.Current().SearchEngine, r.Query)
	if !v.say(c, Response{Text: fmt.Sprintf(textWebSearch, r.Query)}) {
		return
	}
	if err := v.Launcher.OpenURL(url); err != nil {
		v.log.Error("Failed to open search", "err", err)
	}
	v.finish(c)
}

func (v *Vox) customAction(c *cycle, r nlu.Result) {
	a, ok := action.Match(v.Settings.Current().CustomActions, r.Query)
	if !ok {
		v.unknown(c, r)
		return
	}

	runner := action.Runner{
		Say: func(_ context.Context, text string) {
			v.say(c, Response{Text: text})
		},
		Launcher: v.Launcher,
		Player:   v.Player,
		Settle:   v.opts.ActionSettle,
		Log:      v.log,
	}

	err := runner.Run(c.ctx, a.Steps)
	var se *action.StepError
	switch {
	case err == nil:
		v.finish(c)
	case errors.As(err, &se):
		v.fail(c, Response{Text: fmt.Sprintf(textActionProblem, se.Kind)})
	default:
		// abandoned
	}
}

func (v *Vox) drumroll(c *cycle, _ nlu.Result) {
	if !v.say(c, Response{Text: textDrumroll}) {
		return
	}
	v.Player.Cue(c.ctx, notify.Drumroll)
	if c.ctx.Err() == nil {
		v.finish(c)
	}
}

func (v *Vox) openApp(c *cycle, r nlu.Result) {
	name := r.Entities[nlu.KeyApp]
	outcome, found := choice.Resolve(v.Apps.Find(name))

	switch outcome {
	case choice.None:
		v.Launcher.Fallback(name)
		v.reply(c, Response{Text: fmt.Sprintf(textAppFallback, name)})
	case choice.Single:
		app := found[0]
		if err := v.Launcher.OpenPath(app.Path); err != nil {
			v.fail(c, Response{Text: textOpenFailed})
			return
		}
		v.reply(c, Response{Text: "Opening " + app.Name + "..."})
	default:
		set := choice.Set{Prompt: textAppChoice}
		for _, a := range found {
			set.Options = append(set.Options, choice.Option{Label: a.Name, Path: a.Path})
		}
		v.offer(c, set)
	}
}

// offer puts a choice set on screen and ends the cycle so a selection can be
// made.
func (v *Vox) offer(c *cycle, set choice.Set) {
	v.choices.Put(set)
	shown, _ := v.choices.Current()
	v.reply(c, Response{Text: set.Prompt, Choices: &shown, WebLink: v.webLink()})
}

func (v *Vox) weather(c *cycle, r nlu.Result) {
	loc := r.Entities[nlu.KeyLocation]

	places, err := v.Web.Geocode(c.ctx, loc, 1)
	switch {
	case errors.Is(err, webapi.ErrUnreachable):
		v.fail(c, Response{Text: textGeoUnreachable, WebLink: v.webLink()})
		return
	case errors.Is(err, webapi.ErrNoResults):
		v.fail(c, Response{Text: fmt.Sprintf(textGeoNotFound, loc), WebLink: v.webLink()})
		return
	case err != nil:
		if c.ctx.Err() == nil {
			v.fail(c, Response{Text: textWeatherFailed, WebLink: v.webLink()})
		}
		return
	}

	p := places[0]
	if !v.say(c, Response{Text: fmt.Sprintf(textWeather, p.SpeechLabel())}) {
		return
	}
	if err := v.Launcher.OpenURL(webapi.WeatherURL(p)); err != nil {
		v.log.Error("Failed to open forecast", "err", err)
	}
	v.finish(c)
}

func (v *Vox) locationTime(c *cycle, r nlu.Result) {
	input := r.Entities[nlu.KeyLocation]
	failed := func() {
		if c.ctx.Err() == nil {
			v.fail(c, Response{Text: fmt.Sprintf(textCityTimeFailed, input), WebLink: v.webLink()})
		}
	}

	if zone, ok := webapi.ZoneForAbbreviation(input); ok {
		t, err := v.Web.CurrentTime(c.ctx, zone)
		if err != nil {
			failed()
			return
		}
		v.reply(c, Response{
			Text:    fmt.Sprintf(textCityTime, strings.ToUpper(input), t.Format("03:04 PM")),
			WebLink: v.webLink(),
		})
		return
	}

	name, qualifier, _ := strings.Cut(input, ",")
	places, err := v.Web.Geocode(c.ctx, strings.TrimSpace(name), choice.MaxOptions)
	if err != nil {
		failed()
		return
	}
	places = narrow(distinct(places), strings.TrimSpace(qualifier))

	outcome, shown := choice.Resolve(places)
	switch outcome {
	case choice.None:
		failed()
	case choice.Multiple:
		set := choice.Set{Prompt: textCityChoice}
		for _, p := range shown {
			label := p.Name + ", " + p.Region()
			set.Options = append(set.Options, choice.Option{Label: label, Query: "what is the time in " + label})
		}
		v.offer(c, set)
	default:
		p := shown[0]
		t, err := v.Web.CurrentTime(c.ctx, p.Timezone)
		if err != nil {
			failed()
			return
		}
		v.reply(c, Response{
			Text:    fmt.Sprintf(textCityTime, p.Name+", "+p.Country, t.Format("03:04 PM")),
			WebLink: v.webLink(),
		})
	}
}

// distinct drops places that would show the same label.
func distinct(places []webapi.Place) []webapi.Place {
	seen := make(map[string]bool, len(places))
	var out []webapi.Place
	for _, p := range places {
		key := strings.ToLower(p.Name + "|" + p.Region() + "|" + p.Country)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// narrow keeps places whose region or country matches qualifier. Without a
// match nothing is dropped.
func narrow(places []webapi.Place, qualifier string) []webapi.Place {
	if qualifier == "" {
		return places
	}
	var out []webapi.Place
	for _, p := range places {
		if strings.EqualFold(p.Region(), qualifier) || strings.EqualFold(p.Country, qualifier) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return places
	}
	return out
}

func (v *Vox) localTime(c *cycle, _ nlu.Result) {
	v.reply(c, Response{
		Text:    fmt.Sprintf(textLocalTime, v.opts.Now().Format("03:04 PM")),
		WebLink: v.webLink(),
	})
}

func (v *Vox) date(c *cycle, _ nlu.Result) {
	v.reply(c, Response{
		Text:    fmt.Sprintf(textDate, v.opts.Now().Format("Monday, January 2, 2006")),
		WebLink: v.webLink(),
	})
}

func (v *Vox) calculate(c *cycle, r nlu.Result) {
	n, err := calc.Evaluate(r.Entities[nlu.KeyExpr])
	if err != nil {
		v.log.Debug("Calculation rejected", "expr", r.Entities[nlu.KeyExpr], "err", err)
		v.fail(c, Response{Text: textCalcFailed, WebLink: v.webLink()})
		return
	}
	v.reply(c, Response{Text: "The answer is " + calc.Format(n) + ".", WebLink: v.webLink()})
}

func (v *Vox) joke(c *cycle, _ nlu.Result) {
	v.reply(c, Response{Text: v.pick(jokes), WebLink: v.webLink()})
}

func (v *Vox) version(c *cycle, _ nlu.Result) {
	v.reply(c, Response{Text: fmt.Sprintf(textVersion, v.opts.Version)})
}
