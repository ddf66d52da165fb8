// Package holiday provides read-only events for public holidays and for
// birthdays kept in an abook address book.
package holiday

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
	"gopkg.in/ini.v1"

	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

var countries = map[string][]*cal.Holiday{
	"us": us.Holidays,
	"gb": gb.Holidays,
	"de": de.Holidays,
	"fr": fr.Holidays,
	"ca": ca.Holidays,
}

// Loader builds holiday and birthday events in the display calendar.
type Loader struct {
	sys    calendar.System
	logger *appLog.Logger
}

func NewLoader(sys calendar.System, logger *appLog.Logger) *Loader {
	if sys == nil {
		sys = calendar.Gregorian{}
	}
	return &Loader{sys: sys, logger: logger.With("component", "holiday")}
}

// Holidays returns one event per holiday of country observed in the
// Gregorian years from..to inclusive, sorted by date.
func (l *Loader) Holidays(country string, from, to int) ([]*model.Event, error) {
	list, ok := countries[strings.ToLower(country)]
	if !ok {
		return nil, fmt.Errorf("holiday: unsupported country %q", country)
	}

	var events []*model.Event
	for year := from; year <= to; year++ {
		for _, h := range list {
			_, observed := h.Calc(year)
			if observed.IsZero() {
				continue
			}
			ev := model.NewEvent(0, h.Name, l.date(observed))
			ev.Origin = model.CalendarOrigin{Source: model.SourceHolidays}
			events = append(events, ev)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	for i, ev := range events {
		ev.ID = i + 1
	}
	l.logger.Debug("holidays loaded", "country", country, "count", len(events))
	return events, nil
}

func (l *Loader) date(t time.Time) model.Date {
	return l.sys.FromGregorian(model.NewDate(t.Year(), int(t.Month()), t.Day()))
}

// Birthdays reads the birthday and anniversary keys of an abook file. Each
// becomes a yearly event starting at the recorded date; entries without a
// year start in 1900.
func (l *Loader) Birthdays(path string) ([]*model.Event, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("holiday: load abook %s: %w", path, err)
	}

	var events []*model.Event
	for _, sec := range file.Sections() {
		name := strings.TrimSpace(sec.Key("name").String())
		if name == "" {
			continue
		}
		for _, field := range []struct{ key, label string }{
			{"birthday", name},
			{"anniversary", name + " (anniversary)"},
		} {
			raw := strings.TrimSpace(sec.Key(field.key).String())
			if raw == "" {
				continue
			}
			d, ok := parseAbookDate(raw)
			if !ok {
				l.logger.Warn("abook date skipped", "name", name, "key", field.key, "value", raw)
				continue
			}
			ev := model.NewEvent(len(events)+1, field.label, l.sys.FromGregorian(d))
			ev.Origin = model.CalendarOrigin{Source: model.SourceBirthdays}
			ev.Repetition = 0
			ev.Frequency = model.Yearly
			ev.RRule = "FREQ=YEARLY"
			events = append(events, ev)
		}
	}
	l.logger.Debug("birthdays loaded", "path", path, "count", len(events))
	return events, nil
}

// parseAbookDate accepts YYYY-MM-DD and --MM-DD; month and day are always
// the last five characters.
func parseAbookDate(v string) (model.Date, bool) {
	if len(v) < 5 {
		return model.Date{}, false
	}
	md, err := time.Parse("01-02", v[len(v)-5:])
	if err != nil {
		return model.Date{}, false
	}
	year := 1900
	if len(v) >= 10 && !strings.HasPrefix(v, "--") {
		y, err := time.Parse("2006", v[:4])
		if err != nil {
			return model.Date{}, false
		}
		year = y.Year()
	}
	return model.NewDate(year, int(md.Month()), md.Day()), true
}
