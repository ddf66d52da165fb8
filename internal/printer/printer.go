// Package printer writes a non-interactive listing of the agenda.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"termcal/internal/agenda"
	"termcal/internal/calendar"
	"termcal/internal/model"
)

type Printer struct {
	Out         io.Writer
	HidePrivate bool
}

func New(out io.Writer) *Printer {
	if out == nil {
		out = color.Output
	}
	return &Printer{Out: out}
}

func (p *Printer) title(s string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(p.Out, s)
}

func (p *Printer) none() {
	f := color.New(color.Faint, color.Italic)
	_, _ = f.Fprint(p.Out, " none\n\n")
}

func paint(s model.Status) *color.Color {
	switch s {
	case model.StatusImportant:
		return color.New(color.FgRed, color.Bold)
	case model.StatusUnimportant:
		return color.New(color.Faint)
	case model.StatusDone:
		return color.New(color.Faint, color.CrossedOut)
	default:
		return color.New()
	}
}

func (p *Printer) name(it *model.Item) string {
	if p.HidePrivate && it.Private {
		return "(private)"
	}
	return it.Name
}

func clock(ev *model.Event) string {
	if ev.AllDay() {
		return "all day"
	}
	s := fmt.Sprintf("%02d:%02d", ev.Start.Hour, ev.Start.Minute)
	if ev.End != nil {
		s += fmt.Sprintf("-%02d:%02d", ev.End.Hour, ev.End.Minute)
	}
	return s
}

func source(o model.Origin) string {
	switch v := o.(type) {
	case *model.RemoteOrigin:
		return "remote"
	case model.CalendarOrigin:
		switch v.Source {
		case model.SourceHolidays:
			return "holiday"
		case model.SourceBirthdays:
			return "birthday"
		}
		return "calendar"
	}
	return ""
}

// Day lists the events and deadlines of one day.
func (p *Printer) Day(ag *agenda.Agenda, day model.Date) {
	p.title(fmt.Sprintf("%s %s", day, calendar.Weekday(ag.System(), day)))

	events := ag.EventsOn(day)
	due := ag.Deadlines(day)
	if len(events) == 0 && len(due) == 0 {
		p.none()
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, ev := range events {
		tbl.AddRow(clock(ev), paint(ev.Status).Sprint(p.name(&ev.Item)), source(ev.Origin))
	}
	for _, t := range due {
		tbl.AddRow("due", paint(t.Status).Sprint(p.name(&t.Item)), source(t.Origin))
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
	_, _ = fmt.Fprintln(p.Out)
}

// Month lists every day of the month that has events or deadlines.
func (p *Printer) Month(ag *agenda.Agenda, year, month int) {
	sys := ag.System()
	p.title(fmt.Sprintf("%04d/%02d", year, month))

	tbl := uitable.New()
	tbl.Separator = "  "
	rows := 0
	for d := 1; d <= sys.DaysIn(year, month); d++ {
		day := model.NewDate(year, month, d)
		label := fmt.Sprintf("%s %s", day, shortWeekday(sys, day))
		for _, ev := range ag.EventsOn(day) {
			tbl.AddRow(label, clock(ev), paint(ev.Status).Sprint(p.name(&ev.Item)), source(ev.Origin))
			label = ""
			rows++
		}
		for _, t := range ag.Deadlines(day) {
			tbl.AddRow(label, "due", paint(t.Status).Sprint(p.name(&t.Item)), source(t.Origin))
			label = ""
			rows++
		}
	}
	if rows == 0 {
		p.none()
		return
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
	_, _ = fmt.Fprintln(p.Out)
}

// Tasks lists the journal with its project headers.
func (p *Printer) Tasks(ag *agenda.Agenda) {
	p.title("Journal")
	items := ag.Tasks.Items()
	if len(items) == 0 {
		p.none()
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, t := range items {
		if t.Header {
			tbl.AddRow(color.New(color.Bold).Sprint(t.Name), "")
			continue
		}
		name := p.name(&t.Item)
		if t.Subtask {
			name = "  " + name
		}
		deadline := ""
		if !t.Date.IsZero() {
			deadline = t.Date.String()
		}
		tbl.AddRow(paint(t.Status).Sprint(name), deadline)
	}
	_, _ = fmt.Fprintln(p.Out, tbl)
	_, _ = fmt.Fprintln(p.Out)
}

func shortWeekday(sys calendar.System, d model.Date) string {
	return strings.ToLower(calendar.Weekday(sys, d).String()[:3])
}
