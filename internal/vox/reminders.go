package vox

import (
	"errors"
	"fmt"
	"strings"

	"voxbar/internal/datetime"
	"voxbar/internal/nlu"
	"voxbar/internal/reminder"
)

func (v *Vox) listReminders(c *cycle, _ nlu.Result) {
	v.reply(c, v.reminderList())
}

func (v *Vox) reminderList() Response {
	list := v.Reminders.List()
	if len(list) == 0 {
		return Response{Text: textNoReminders}
	}

	loc := v.opts.Now().Location()
	r := Response{Text: textReminders, Reminders: make([]ReminderView, 0, len(list))}
	for _, rem := range list {
		at := rem.FireAt.In(loc)
		r.Reminders = append(r.Reminders, ReminderView{
			ID:   rem.ID,
			Text: rem.Text,
			When: datetime.Short(at),
			Time: datetime.InputValue(at),
		})
	}
	return r
}

// setReminder creates the reminder straight away when the query carries a
// usable time, and opens the editor prefilled otherwise.
func (v *Vox) setReminder(c *cycle, r nlu.Result) {
	body := r.Entities[nlu.KeyBody]
	now := v.opts.Now()

	text, at, ok := datetime.ExtractReminder(body, now)
	if !ok || strings.TrimSpace(text) == "" {
		v.showForm(c, Form{Text: strings.TrimSpace(body)})
		return
	}

	rem, err := v.Reminders.Create(text, at)
	if err != nil {
		v.reminderFailed(c, err)
		return
	}
	v.reply(c, Response{Text: fmt.Sprintf(textReminderSet, rem.Text, datetime.Friendly(rem.FireAt.In(now.Location())))})
}

func (v *Vox) showForm(c *cycle, f Form) {
	if c.ctx.Err() != nil {
		return
	}
	v.Surface.Show(Response{Tone: ToneNormal, Form: &f})
	v.end(c, true)
}

// SaveReminder handles the reminder editor. An empty id creates a new
// reminder; timeValue is the editor's local date-time value.
func (v *Vox) SaveReminder(id, text, timeValue string) error {
	return v.start(func(c *cycle) {
		text = strings.TrimSpace(text)
		at, err := datetime.ParseInputValue(strings.TrimSpace(timeValue), v.opts.Now().Location())
		if text == "" || err != nil {
			v.fail(c, Response{Text: textReminderMissing})
			return
		}

		if id != "" {
			if _, err := v.Reminders.Update(id, text, at); err != nil {
				v.reminderFailed(c, err)
				return
			}
			v.reply(c, Response{Text: textReminderUpdated})
			return
		}

		rem, err := v.Reminders.Create(text, at)
		if err != nil {
			v.reminderFailed(c, err)
			return
		}
		v.reply(c, Response{Text: fmt.Sprintf(textReminderSet, rem.Text, datetime.Friendly(at))})
	})
}

// EditReminder opens the editor on an existing reminder.
func (v *Vox) EditReminder(id string) error {
	return v.start(func(c *cycle) {
		for _, rem := range v.Reminders.List() {
			if rem.ID == id {
				at := rem.FireAt.In(v.opts.Now().Location())
				v.showForm(c, Form{ID: rem.ID, Text: rem.Text, Time: datetime.InputValue(at)})
				return
			}
		}
		v.fail(c, Response{Text: textReminderNotFound})
	})
}

// RemoveReminder deletes a reminder and shows the list again.
func (v *Vox) RemoveReminder(id string) error {
	if err := v.Reminders.Remove(id); err != nil {
		return err
	}
	return v.start(func(c *cycle) {
		v.reply(c, v.reminderList())
	})
}

func (v *Vox) reminderFailed(c *cycle, err error) {
	switch {
	case errors.Is(err, reminder.ErrInPast):
		v.fail(c, Response{Text: textReminderPast})
	case errors.Is(err, reminder.ErrNotFound):
		v.fail(c, Response{Text: textReminderNotFound})
	default:
		v.fail(c, Response{Text: textReminderMissing})
	}
}
