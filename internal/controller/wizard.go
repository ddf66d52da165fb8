package controller

import (
	"fmt"
	"strconv"
	"strings"

	"termcal/internal/model"
)

// addEventWizard asks for date, name, start and end. A bad date falls back
// to the shown day, an empty name aborts, a bad start makes the event
// all-day and a bad end means one hour after the start.
func (c *Controller) addEventWizard() {
	sys := c.ag.System()

	date, ok := parseDate(c.prompt.Line(fmt.Sprintf("Date (YYYY-MM-DD, empty for %s): ", c.day)), sys)
	if !ok {
		date = c.day
	}

	name := strings.TrimSpace(c.prompt.Line("Event name: "))
	if name == "" {
		return
	}

	ev := model.NewEvent(c.ag.Events.GenerateID(), name, date)
	if start, ok := parseClock(c.prompt.Line("Start time (HH:MM, empty for all-day): ")); ok {
		ev.Start = &start
		end, ok := parseClock(c.prompt.Line("End time (HH:MM, empty for one hour): "))
		if !ok {
			end = model.Clock{Hour: (start.Hour + 1) % 24, Minute: start.Minute}
		}
		ev.End = &end
	}
	c.ag.Events.Add(ev)
	c.logger.Debug("event added", "id", ev.ID, "date", ev.Date.String())
}

// recurringEventWizard asks for a day of the shown month, name, number of
// repetitions and frequency. Any invalid answer aborts.
func (c *Controller) recurringEventWizard() {
	day, ok := c.readDay()
	if !ok {
		return
	}
	name := strings.TrimSpace(c.prompt.Line("Event name: "))
	if name == "" {
		return
	}
	reps, err := strconv.Atoi(strings.TrimSpace(c.prompt.Line("How many times repeat: ")))
	if err != nil || reps < 0 {
		return
	}
	freq, ok := parseFrequency(c.prompt.Line("Repeat every (d)ay, (w)eek, (m)onth or (y)ear: "))
	if !ok {
		return
	}
	if reps == 0 {
		reps = 1
	}

	ev := model.NewEvent(c.ag.Events.GenerateID(), name, model.NewDate(c.day.Year, c.day.Month, day))
	ev.Repetition = reps + 1
	ev.Frequency = freq
	c.ag.Events.Add(ev)
}

// addTaskWizard asks for a name and places the new task with place.
func (c *Controller) addTaskWizard(place func(*model.Task)) {
	name := strings.TrimSpace(c.prompt.Line("Task: "))
	if name == "" {
		return
	}
	place(model.NewTask(c.ag.Tasks.GenerateID(), name))
}
