package controller

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"termcal/internal/calendar"
	"termcal/internal/model"
)

// CalendarView returns the user events of the shown month, week or day in
// display order. Selection numbers index this view.
func (c *Controller) CalendarView() model.View[*model.Event] {
	eng := c.ag.Engine()
	events := &c.ag.Events.Collection
	switch c.mode {
	case Daily:
		return eng.FilterDay(events, c.day)
	case Weekly:
		days := c.WeekDays()
		return events.Filter(func(ev *model.Event) bool {
			for _, d := range days {
				if eng.OccursOn(ev, d) {
					return true
				}
			}
			return false
		})
	default:
		return eng.FilterMonth(events, c.day.Year, c.day.Month)
	}
}

// WeekDays returns the seven days of the week containing the shown day.
func (c *Controller) WeekDays() []model.Date {
	sys := c.ag.System()
	start := time.Monday
	if c.ag.Config().WeekStart == "sunday" {
		start = time.Sunday
	}
	offset := (int(calendar.Weekday(sys, c.day)) - int(start) + 7) % 7
	first := sys.AddDays(c.day, -offset)

	days := make([]model.Date, 7)
	for i := range days {
		days[i] = sys.AddDays(first, i)
	}
	return days
}

func (c *Controller) calendarView() []int { return idsOf(c.CalendarView()) }

func (c *Controller) calendarKey(key string) {
	events := c.ag.Events
	sys := c.ag.System()

	eventSelection := func(prompt string, apply func(id int)) {
		c.startSelection(Selection{Key: key, Prompt: prompt, View: c.calendarView, Apply: apply})
	}

	switch key {
	case "i", "h":
		eventSelection("Mark important, event number: ", func(id int) { events.ToggleStatus(id, model.StatusImportant) })
	case "l":
		eventSelection("Mark unimportant, event number: ", func(id int) { events.ToggleStatus(id, model.StatusUnimportant) })
	case "u":
		eventSelection("Reset status, event number: ", func(id int) { events.ToggleStatus(id, model.StatusNormal) })
	case "d":
		eventSelection("Mark done, event number: ", func(id int) { events.ToggleStatus(id, model.StatusDone) })
	case ".":
		eventSelection("Toggle privacy, event number: ", events.TogglePrivacy)
	case "x":
		eventSelection("Delete event number: ", events.Delete)
	case "e", "r":
		eventSelection("Rename event number: ", func(id int) {
			if name := strings.TrimSpace(c.prompt.Line("New name: ")); name != "" {
				events.Rename(id, name)
			}
		})
	case "m":
		eventSelection("Move event number: ", func(id int) {
			if d, ok := parseDate(c.prompt.Line("Move to date (YYYY-MM-DD): "), sys); ok {
				events.ChangeDate(id, d)
			}
		})
	case "M":
		eventSelection("Move event number: ", func(id int) {
			if day, ok := c.readDay(); ok {
				events.ChangeDay(id, day)
			}
		})

	case "n", "j", "down", "right":
		c.step(1)
	case "p", "k", "up", "left":
		c.step(-1)
	case "R", "home":
		c.day = c.today()
	case "g":
		if d, ok := parseDate(c.prompt.Line("Go to date (YYYY-MM-DD): "), sys); ok {
			c.day = d
			c.mode = Daily
		}
	case "G":
		if day, ok := c.readDay(); ok {
			c.day.Day = day
			c.mode = Daily
		}
	case "v":
		if c.mode == Daily {
			c.mode = Monthly
		} else {
			c.mode = Daily
		}
	case "w":
		if c.mode == Weekly {
			c.mode = Monthly
		} else {
			c.mode = Weekly
		}
	case "W":
		c.weekNumbers = !c.weekNumbers
	case "a":
		c.addEventWizard()
	case "A":
		c.recurringEventWizard()
	case "Q":
		c.reload()
	case "*":
		c.hidePrivate = !c.hidePrivate
	case "tab", " ":
		c.screen = ScreenJournal
	case "?":
		c.screen = ScreenHelp
	case "q":
		c.requestQuit()
	}
}

// step moves the shown period forward or back by one month, week or day.
func (c *Controller) step(n int) {
	sys := c.ag.System()
	switch c.mode {
	case Daily:
		c.day = sys.AddDays(c.day, n)
	case Weekly:
		c.day = sys.AddDays(c.day, 7*n)
	default:
		first := model.NewDate(c.day.Year, c.day.Month, 1)
		c.day = sys.AddMonths(first, n)
	}
}

// readDay asks for a day of the shown month.
func (c *Controller) readDay() (int, bool) {
	q := fmt.Sprintf("Day of %04d/%02d: ", c.day.Year, c.day.Month)
	day, err := strconv.Atoi(strings.TrimSpace(c.prompt.Line(q)))
	if err != nil {
		return 0, false
	}
	if !c.ag.System().Valid(model.NewDate(c.day.Year, c.day.Month, day)) {
		return 0, false
	}
	return day, true
}

func (c *Controller) helpKey(key string) {
	switch key {
	case "?", "q", " ", "esc":
		c.screen = ScreenCalendar
	}
}
