// Package recur decides on which dates a stored event occurs.
package recur

import (
	"strings"
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

// Engine evaluates counted repetitions in the display calendar and carried
// RRULEs on the Gregorian projection of the dates.
type Engine struct {
	sys    calendar.System
	loc    *time.Location
	logger *appLog.Logger

	mu  sync.Mutex
	bad map[string]bool
}

// New returns an engine for sys. A nil loc means time.Local.
func New(sys calendar.System, loc *time.Location, logger *appLog.Logger) *Engine {
	if sys == nil {
		sys = calendar.Gregorian{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		sys:    sys,
		loc:    loc,
		logger: logger.With("component", "recur"),
		bad:    make(map[string]bool),
	}
}

// System returns the calendar the engine computes in.
func (e *Engine) System() calendar.System { return e.sys }

// OccursOn reports whether ev has an occurrence on day.
func (e *Engine) OccursOn(ev *model.Event, day model.Date) bool {
	return len(e.Occurrences(ev, day, day)) > 0
}

// OccursIn reports whether ev has an occurrence inside the month.
func (e *Engine) OccursIn(ev *model.Event, year, month int) bool {
	first := model.NewDate(year, month, 1)
	last := model.NewDate(year, month, e.sys.DaysIn(year, month))
	return len(e.Occurrences(ev, first, last)) > 0
}

// Occurrences returns the dates of ev that fall in [from, to], in order.
func (e *Engine) Occurrences(ev *model.Event, from, to model.Date) []model.Date {
	if ev == nil || ev.Date.IsZero() || to.Before(from) {
		return nil
	}
	if ev.Repetition == 0 && ev.RRule != "" {
		if dates, ok := e.ruleOccurrences(ev, from, to); ok {
			return dates
		}
		return e.once(ev.Date, from, to)
	}
	if ev.Repetition <= 1 || ev.Frequency == model.Once {
		return e.once(ev.Date, from, to)
	}

	switch ev.Frequency {
	case model.Daily:
		return e.stepped(ev, from, to, 1)
	case model.Weekly:
		return e.stepped(ev, from, to, 7)
	case model.Monthly:
		return e.monthly(ev, from, to, 1)
	case model.Yearly:
		return e.monthly(ev, from, to, 12)
	default:
		return e.once(ev.Date, from, to)
	}
}

func (e *Engine) once(base, from, to model.Date) []model.Date {
	if base.Before(from) || to.Before(base) {
		return nil
	}
	return []model.Date{base}
}

// stepped handles frequencies with a fixed length in days.
func (e *Engine) stepped(ev *model.Event, from, to model.Date, step int) []model.Date {
	start := e.sys.DayNumber(ev.Date)
	lo, hi := e.sys.DayNumber(from), e.sys.DayNumber(to)

	k := 0
	if lo > start {
		k = (lo - start + step - 1) / step
	}
	var out []model.Date
	for ; k < ev.Repetition; k++ {
		n := start + k*step
		if n > hi {
			break
		}
		out = append(out, e.sys.FromDayNumber(n))
	}
	return out
}

// monthly advances by whole months from the base date each time, so a day
// past the end of a short month rolls over without drifting later ones.
func (e *Engine) monthly(ev *model.Event, from, to model.Date, months int) []model.Date {
	var out []model.Date
	for k := 0; k < ev.Repetition; k++ {
		d := e.sys.AddMonths(ev.Date, k*months)
		if to.Before(d) {
			break
		}
		if !d.Before(from) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) ruleOccurrences(ev *model.Event, from, to model.Date) ([]model.Date, bool) {
	raw := strings.TrimPrefix(strings.TrimSpace(ev.RRule), "RRULE:")
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		e.reportBadRule(raw, err)
		return nil, false
	}

	g := e.sys.ToGregorian(ev.Date)
	hour, minute := 0, 0
	if ev.Start != nil {
		hour, minute = ev.Start.Hour, ev.Start.Minute
	}
	r.DTStart(time.Date(g.Year, time.Month(g.Month), g.Day, hour, minute, 0, 0, e.loc))

	excluded := make(map[model.Date]bool, len(ev.ExDates))
	for _, x := range ev.ExDates {
		if d, ok := parseExDate(x, e.loc); ok {
			excluded[d] = true
		}
	}

	after := calendar.Time(e.sys, from, e.loc)
	before := calendar.Time(e.sys, e.sys.AddDays(to, 1), e.loc).Add(-time.Second)

	var out []model.Date
	for _, t := range r.Between(after, before, true) {
		t = t.In(e.loc)
		day := model.NewDate(t.Year(), int(t.Month()), t.Day())
		if excluded[day] {
			continue
		}
		d := e.sys.FromGregorian(day)
		if n := len(out); n > 0 && out[n-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out, true
}

func (e *Engine) reportBadRule(raw string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bad[raw] {
		return
	}
	e.bad[raw] = true
	e.logger.Error("unparseable rrule, treating event as single occurrence", err, "rrule", raw)
}

// parseExDate reads one EXDATE value as a Gregorian date in loc.
func parseExDate(v string, loc *time.Location) (model.Date, bool) {
	v = strings.TrimSpace(v)
	var (
		t   time.Time
		err error
	)
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err = time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		t, err = time.ParseInLocation("20060102T150405", v, loc)
	default:
		t, err = time.ParseInLocation("20060102", v, loc)
	}
	if err != nil {
		return model.Date{}, false
	}
	t = t.In(loc)
	return model.NewDate(t.Year(), int(t.Month()), t.Day()), true
}

// FilterDay returns the events occurring on day.
func (e *Engine) FilterDay(events *model.Collection[*model.Event], day model.Date) model.View[*model.Event] {
	return events.Filter(func(ev *model.Event) bool {
		return !ev.Header && e.OccursOn(ev, day)
	})
}

// FilterMonth returns the events with at least one occurrence in the month.
func (e *Engine) FilterMonth(events *model.Collection[*model.Event], year, month int) model.View[*model.Event] {
	return events.Filter(func(ev *model.Event) bool {
		return !ev.Header && e.OccursIn(ev, year, month)
	})
}
