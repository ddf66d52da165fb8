package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"termcal/internal/calendar"
	"termcal/internal/model"
)

// uidSpace keeps exported UIDs stable across runs for the same event id.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("termcal"))

// Export writes the locally owned events as a VCALENDAR.
func Export(w io.Writer, events []*model.Event, sys calendar.System, loc *time.Location) error {
	if sys == nil {
		sys = calendar.Gregorian{}
	}
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//termcal//EN")

	now := time.Now().UTC()
	for _, ev := range events {
		if !ev.Local() || ev.Date.IsZero() {
			continue
		}
		uid := uuid.NewSHA1(uidSpace, []byte(strconv.Itoa(ev.ID))).String()
		out := cal.AddEvent(uid)
		out.SetDtStampTime(now)
		out.SetSummary(ev.Name)
		if ev.Private {
			out.SetProperty(ical.ComponentPropertyClass, "PRIVATE")
		}

		day := calendar.Time(sys, ev.Date, loc)
		if ev.AllDay() {
			out.SetAllDayStartAt(day)
			out.SetAllDayEndAt(day.AddDate(0, 0, 1))
		} else {
			start := day.Add(time.Duration(ev.Start.Hour)*time.Hour + time.Duration(ev.Start.Minute)*time.Minute)
			end := start.Add(time.Hour)
			if ev.End != nil {
				end = day.Add(time.Duration(ev.End.Hour)*time.Hour + time.Duration(ev.End.Minute)*time.Minute)
				if !end.After(start) {
					end = end.AddDate(0, 0, 1)
				}
			}
			out.SetStartAt(start)
			out.SetEndAt(end)
		}

		if rule := RRuleFor(ev); rule != "" {
			out.AddProperty(ical.ComponentPropertyRrule, rule)
			if len(ev.ExDates) > 0 {
				out.AddProperty(ical.ComponentPropertyExdate, strings.Join(ev.ExDates, ","))
			}
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// RRuleFor returns the recurrence rule of ev, or "" for a single event.
func RRuleFor(ev *model.Event) string {
	if ev.Repetition == 0 {
		return strings.TrimPrefix(ev.RRule, "RRULE:")
	}
	if ev.Repetition <= 1 || ev.Frequency == model.Once {
		return ""
	}
	return fmt.Sprintf("FREQ=%s;COUNT=%d", strings.ToUpper(ev.Frequency.String()), ev.Repetition)
}
