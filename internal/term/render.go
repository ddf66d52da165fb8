package term

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"termcal/internal/calendar"
	"termcal/internal/controller"
	"termcal/internal/model"
)

const privateMask = "(private)"

// Renderer paints the controller's active screen as plain styled lines.
type Renderer struct {
	title       lipgloss.Style
	header      lipgloss.Style
	number      lipgloss.Style
	dim         lipgloss.Style
	important   lipgloss.Style
	unimportant lipgloss.Style
	done        lipgloss.Style
	imported    lipgloss.Style
	footer      lipgloss.Style
}

func NewRenderer() *Renderer {
	return &Renderer{
		title:       lipgloss.NewStyle().Bold(true).Underline(true),
		header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		number:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		dim:         lipgloss.NewStyle().Faint(true),
		important:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		unimportant: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		done:        lipgloss.NewStyle().Strikethrough(true).Faint(true),
		imported:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		footer:      lipgloss.NewStyle().Reverse(true),
	}
}

// Render returns the screen followed by a footer carrying status.
func (r *Renderer) Render(c *controller.Controller, now time.Time, status string) string {
	var b strings.Builder
	switch c.Screen() {
	case controller.ScreenJournal:
		r.journal(&b, c, now)
	case controller.ScreenHelp:
		b.WriteString(r.title.Render("Keys") + "\n\n" + helpText)
	default:
		r.calendar(&b, c)
	}

	foot := fmt.Sprintf(" %s · %s · ? help · q quit ", c.Screen(), c.Mode())
	if status != "" {
		foot += "· " + status + " "
	}
	b.WriteString("\n" + r.footer.Render(foot) + "\n")
	return b.String()
}

func (r *Renderer) style(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusImportant:
		return r.important
	case model.StatusUnimportant:
		return r.unimportant
	case model.StatusDone:
		return r.done
	default:
		return lipgloss.NewStyle()
	}
}

func itemName(it *model.Item, hidePrivate bool) string {
	if hidePrivate && it.Private {
		return privateMask
	}
	return it.Name
}

// period returns the first and last day the calendar screen shows.
func period(c *controller.Controller) (model.Date, model.Date) {
	day := c.Day()
	switch c.Mode() {
	case controller.Daily:
		return day, day
	case controller.Weekly:
		days := c.WeekDays()
		return days[0], days[len(days)-1]
	default:
		sys := c.Agenda().System()
		return model.NewDate(day.Year, day.Month, 1), model.NewDate(day.Year, day.Month, sys.DaysIn(day.Year, day.Month))
	}
}

func (r *Renderer) calendar(b *strings.Builder, c *controller.Controller) {
	ag := c.Agenda()
	eng := ag.Engine()
	day := c.Day()
	from, to := period(c)

	var title string
	switch c.Mode() {
	case controller.Daily:
		title = fmt.Sprintf("%s %s", day, calendar.Weekday(ag.System(), day))
	case controller.Weekly:
		title = fmt.Sprintf("%s to %s", from, to)
	default:
		title = fmt.Sprintf("%04d/%02d", day.Year, day.Month)
	}
	if c.WeekNumbers() {
		_, week := calendar.Time(ag.System(), day, ag.Location()).ISOWeek()
		title += fmt.Sprintf("  week %d", week)
	}
	b.WriteString(r.title.Render(title) + "\n\n")

	view := c.CalendarView()
	if view.Len() == 0 {
		b.WriteString(r.dim.Render("  no events") + "\n")
	}
	for i, ev := range view.Items() {
		when := ev.Date
		if days := eng.Occurrences(ev, from, to); len(days) > 0 {
			when = days[0]
		}
		line := fmt.Sprintf("%s %-11s %s", when, clockRange(ev), itemName(&ev.Item, c.HidePrivate()))
		b.WriteString(r.number.Render(fmt.Sprintf("%3d ", i+1)) + r.style(ev.Status).Render(line) + "\n")
	}

	var extra []string
	for _, ev := range ag.Imported.Items() {
		days := eng.Occurrences(ev, from, to)
		if len(days) == 0 {
			continue
		}
		extra = append(extra, fmt.Sprintf("    %s %-11s %s%s", days[0], clockRange(ev), sourceLabel(ev.Origin), ev.Name))
	}
	if c.Mode() == controller.Daily {
		for _, t := range ag.Deadlines(day) {
			extra = append(extra, fmt.Sprintf("    %s %-11s due: %s", day, "", itemName(&t.Item, c.HidePrivate())))
		}
	}
	if len(extra) > 0 {
		b.WriteString("\n")
		for _, line := range extra {
			b.WriteString(r.imported.Render(line) + "\n")
		}
	}
}

func clockRange(ev *model.Event) string {
	if ev.AllDay() {
		return "all day"
	}
	s := fmt.Sprintf("%02d:%02d", ev.Start.Hour, ev.Start.Minute)
	if ev.End != nil {
		s += fmt.Sprintf("-%02d:%02d", ev.End.Hour, ev.End.Minute)
	}
	return s
}

func sourceLabel(o model.Origin) string {
	if co, ok := o.(model.CalendarOrigin); ok {
		switch co.Source {
		case model.SourceHolidays:
			return "holiday: "
		case model.SourceBirthdays:
			return "birthday: "
		}
	}
	return ""
}

func (r *Renderer) journal(b *strings.Builder, c *controller.Controller, now time.Time) {
	ag := c.Agenda()
	b.WriteString(r.title.Render("Journal") + "\n\n")

	numbers := make(map[*model.Task]int)
	for i, t := range c.JournalView().Items() {
		numbers[t] = i + 1
	}
	if len(numbers) == 0 {
		b.WriteString(r.dim.Render("  no tasks") + "\n")
	}

	for _, t := range ag.Tasks.Items() {
		if t.Header {
			b.WriteString(r.header.Render(t.Name) + "\n")
			continue
		}
		n, ok := numbers[t]
		if !ok {
			continue
		}
		line := itemName(&t.Item, c.HidePrivate())
		if t.Subtask {
			line = "  " + line
		}
		if t.Collapsed {
			line += " [+]"
		}
		if !t.Date.IsZero() {
			line += "  due " + t.Date.String()
		}
		if len(t.Timer.Stamps) > 0 {
			line += "  " + formatElapsed(t.Timer.Elapsed(now))
			if t.Timer.Running() {
				line += " running"
			}
		}
		b.WriteString(r.number.Render(fmt.Sprintf("%3d ", n)) + r.style(t.Status).Render(line) + "\n")
	}

	if imported := ag.ImportedTasks.Items(); len(imported) > 0 {
		b.WriteString("\n")
		for _, t := range imported {
			line := "    " + t.Name
			if !t.Date.IsZero() {
				line += "  due " + t.Date.String()
			}
			b.WriteString(r.imported.Render(line) + "\n")
		}
	}
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return strconv.Itoa(h) + "h" + fmt.Sprintf("%02d", m) + "m"
}

const helpText = `Calendar
  n/j/down/right  next          p/k/up/left  previous
  R/home          today         g/G          go to date/day
  v               daily view    w            weekly view
  W               week numbers  *            hide private
  a               add event     A            add recurring event
  i/h l u d       status        .            privacy
  x               delete        e/r          rename
  m/M             move to date/day
  Q               reload        tab/space    journal

Journal
  t/a             new task top/bottom       A  add subtask
  i/h l u d/v     status        V/D U L I/H  all tasks
  s               timer         T            reset timer
  f/F             deadline      S            toggle subtask
  o               collapse      m            move
  c               remote status x/X          delete / delete all

? help   q quit   ZZ/ZQ exit
`
