package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

// Parser maps VEVENT and VTODO components onto model items. Times are shown
// in loc and dates in sys.
type Parser struct {
	sys    calendar.System
	loc    *time.Location
	logger *appLog.Logger
}

func NewParser(sys calendar.System, loc *time.Location, logger *appLog.Logger) *Parser {
	if sys == nil {
		sys = calendar.Gregorian{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Parser{sys: sys, loc: loc, logger: logger.With("component", "ics")}
}

func parseCalendar(body []byte) (*ical.Calendar, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	return ical.ParseCalendar(bytes.NewReader(body))
}

// ParseEvents parses the VEVENTs of one document. Entries that fail are
// logged and skipped. Ids are left at zero for the owner to assign.
func (p *Parser) ParseEvents(source int, doc Document) ([]*model.Event, error) {
	cal, err := parseCalendar(doc.Body)
	if err != nil {
		p.logger.Error("ics parse failed", err, "source", source, "name", doc.Name)
		return nil, err
	}

	events := make([]*model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := p.parseVEvent(ve)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			p.logger.Error("ics vevent parse failed", perr, "source", source, "name", doc.Name)
			continue
		}
		ev.Origin = model.CalendarOrigin{Source: source}
		events = append(events, ev)
	}

	p.logger.Info("ics events parsed", "source", source, "name", doc.Name, "count", len(events))
	return events, nil
}

// ParseTasks parses the VTODOs of one document.
func (p *Parser) ParseTasks(source int, doc Document) ([]*model.Task, error) {
	cal, err := parseCalendar(doc.Body)
	if err != nil {
		p.logger.Error("ics parse failed", err, "source", source, "name", doc.Name)
		return nil, err
	}

	tasks := make([]*model.Task, 0)
	for _, todo := range cal.Todos() {
		task, keep := p.parseVTodo(todo)
		if !keep {
			continue
		}
		task.Origin = model.CalendarOrigin{Source: source}
		tasks = append(tasks, task)
	}

	p.logger.Info("ics tasks parsed", "source", source, "name", doc.Name, "count", len(tasks))
	return tasks, nil
}

func propValue(c *ical.ComponentBase, name ical.ComponentProperty) string {
	if prop := c.GetProperty(name); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func (p *Parser) parseVTodo(todo *ical.VTodo) (*model.Task, bool) {
	status := strings.ToUpper(propValue(&todo.ComponentBase, ical.ComponentPropertyStatus))
	if status == "CANCELLED" {
		return nil, false
	}

	task := model.NewTask(0, propValue(&todo.ComponentBase, ical.ComponentPropertySummary))

	if prio, err := strconv.Atoi(propValue(&todo.ComponentBase, ical.ComponentPropertyPriority)); err == nil {
		switch {
		case prio > 5:
			task.Status = model.StatusUnimportant
		case prio > 0 && prio < 5:
			task.Status = model.StatusImportant
		}
	}
	if status == "COMPLETED" {
		task.Status = model.StatusDone
	}

	if due := todo.GetProperty(ical.ComponentPropertyDue); due != nil {
		if d, _, ok := p.dateOf(due); ok {
			task.Date = d
		}
	}
	return task, true
}

func (p *Parser) parseVEvent(ve *ical.VEvent) (*model.Event, error) {
	ev := model.NewEvent(0, propValue(&ve.ComponentBase, ical.ComponentPropertySummary), model.Date{Month: 1, Day: 1})

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		// No start: keep an undated event that never matches.
		return ev, nil
	}

	start, startAt, ok := p.dateOf(dtStart)
	if !ok {
		return nil, errors.New("unparseable DTSTART " + dtStart.Value)
	}
	ev.Date = start
	allDay := isDateOnly(dtStart)
	if !allDay {
		ev.Start = &model.Clock{Hour: startAt.Hour(), Minute: startAt.Minute()}
	}

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if end, endAt, ok := p.dateOf(dtEnd); ok {
			days := calendar.DaysBetween(p.sys, start, end)
			if !allDay {
				ev.End = &model.Clock{Hour: endAt.Hour(), Minute: endAt.Minute()}
				// A timed span includes its final day.
				days++
			}
			if days > 1 {
				ev.Frequency = model.Daily
				ev.Repetition = days
			}
		}
	}

	if rule := propValue(&ve.ComponentBase, ical.ComponentPropertyRrule); rule != "" {
		ev.RRule = rule
		ev.Repetition = 0
		ev.Frequency = model.Once
		for _, prop := range ve.GetProperties(ical.ComponentPropertyExdate) {
			for _, part := range strings.Split(prop.Value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					ev.ExDates = append(ev.ExDates, part)
				}
			}
		}
	}
	return ev, nil
}

// isDateOnly detects VALUE=DATE or a value without a time part.
func isDateOnly(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// dateOf reads a DATE or DATE-TIME property. Date-only values keep their
// calendar day; date-times are converted to the display zone first.
func (p *Parser) dateOf(prop *ical.IANAProperty) (model.Date, time.Time, bool) {
	v := strings.TrimSpace(prop.Value)
	if isDateOnly(prop) {
		if len(v) < 8 {
			return model.Date{}, time.Time{}, false
		}
		t, err := time.Parse("20060102", v[:8])
		if err != nil {
			return model.Date{}, time.Time{}, false
		}
		return p.fromGregorian(t), t, true
	}

	loc := time.Local
	if tz, ok := prop.ICalParameters["TZID"]; ok && len(tz) > 0 {
		if l, err := time.LoadLocation(tz[0]); err == nil {
			loc = l
		}
	}
	t, err := parseICSTime(v, loc)
	if err != nil {
		return model.Date{}, time.Time{}, false
	}
	t = t.In(p.loc)
	return p.fromGregorian(t), t, true
}

func (p *Parser) fromGregorian(t time.Time) model.Date {
	return p.sys.FromGregorian(model.NewDate(t.Year(), int(t.Month()), t.Day()))
}

// parseICSTime parses a basic ICS date-time string. Floating times are read
// in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if len(v) == len("20060102T1504") {
		return time.ParseInLocation("20060102T1504", v, loc)
	}
	return time.ParseInLocation("20060102T150405", v, loc)
}
