package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termcal/internal/agenda"
	"termcal/internal/calendar"
	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

// script answers prompts from queues. An exhausted queue returns the
// cancel answer.
type script struct {
	lines    []string
	confirms []bool
	asked    []string
}

func (s *script) Line(prompt string) string {
	s.asked = append(s.asked, prompt)
	if len(s.lines) == 0 {
		return ""
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l
}

func (s *script) Confirm(question string) bool {
	s.asked = append(s.asked, question)
	if len(s.confirms) == 0 {
		return false
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c
}

func (s *script) answer(lines ...string) { s.lines = append(s.lines, lines...) }
func (s *script) confirm(vals ...bool) { s.confirms = append(s.confirms, vals...) }

var sunday = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, tasks, events string, tune func(*config.Config)) (*Controller, *script) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.TasksFile = filepath.Join(dir, "tasks.csv")
	cfg.EventsFile = filepath.Join(dir, "events.csv")
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Timezone = "UTC"
	if tune != nil {
		tune(cfg)
	}
	require.NoError(t, os.WriteFile(cfg.TasksFile, []byte(tasks), 0o600))
	require.NoError(t, os.WriteFile(cfg.EventsFile, []byte(events), 0o600))

	ag, err := agenda.New(cfg, appLog.Nop())
	require.NoError(t, err)
	require.NoError(t, ag.Load(context.Background()))

	p := &script{}
	now := sunday
	c := New(ag, p, appLog.Nop(), WithClock(func() time.Time { return now }))
	return c, p
}

func names(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}

func TestNewStartsIdleOnToday(t *testing.T) {
	c, _ := setup(t, "", "", nil)
	assert.IsType(t, Idle{}, c.State())
	assert.Equal(t, ScreenCalendar, c.Screen())
	assert.Equal(t, Monthly, c.Mode())
	assert.Equal(t, model.NewDate(2024, 3, 10), c.Day())
}

func TestInvalidSelectionIsDropped(t *testing.T) {
	c, p := setup(t, "", "1,2024,3,5,\"Dentist\",1,once,normal\n", nil)
	ev := c.Agenda().Events.Items()[0]

	for _, input := range []string{"2", "0", "-1", "abc", ""} {
		p.answer(input)
		c.Handle("d")
		assert.IsType(t, Idle{}, c.State(), input)
		assert.Equal(t, model.StatusNormal, ev.Status, input)
	}
	assert.False(t, c.Agenda().Dirty())

	p.answer("1")
	c.Handle("d")
	assert.Equal(t, model.StatusDone, ev.Status)
	assert.True(t, c.Agenda().Dirty())
}

func TestKeysArePendingUntilSelected(t *testing.T) {
	c, _ := setup(t, "", "1,2024,3,5,\"Dentist\",1,once,normal\n", nil)

	c.Feed("x")
	sel, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "x", sel.Key)

	c.Feed("n")
	assert.Equal(t, model.NewDate(2024, 3, 10), c.Day(), "keys are ignored while selecting")

	c.Select("1")
	assert.IsType(t, Idle{}, c.State())
	assert.Equal(t, 0, c.Agenda().Events.Len())
}

func TestSelectionOnEmptyViewStaysIdle(t *testing.T) {
	c, p := setup(t, "", "1,2024,4,5,\"Elsewhere\",1,once,normal\n", nil)
	c.Feed("d")
	assert.IsType(t, Idle{}, c.State())
	assert.Empty(t, p.asked)

	c.Feed("tab")
	c.Feed("x")
	assert.IsType(t, Idle{}, c.State())
}

func TestAddEventWizard(t *testing.T) {
	c, p := setup(t, "", "", nil)
	events := c.Agenda().Events

	p.answer("", "Late call", "23:30", "")
	c.Handle("a")
	require.Equal(t, 1, events.Len())
	ev := events.Items()[0]
	assert.Equal(t, "Late call", ev.Name)
	assert.Equal(t, model.NewDate(2024, 3, 10), ev.Date)
	require.NotNil(t, ev.Start)
	require.NotNil(t, ev.End)
	assert.Equal(t, model.Clock{Hour: 23, Minute: 30}, *ev.Start)
	assert.Equal(t, model.Clock{Hour: 0, Minute: 30}, *ev.End)

	p.answer("2024-03-12", "Conference", "later")
	c.Handle("a")
	require.Equal(t, 2, events.Len())
	conf := events.Items()[1]
	assert.Equal(t, 2, conf.ID)
	assert.Equal(t, model.NewDate(2024, 3, 12), conf.Date)
	assert.True(t, conf.AllDay())

	p.answer("2024-03-12", "  ")
	c.Handle("a")
	assert.Equal(t, 2, events.Len())
}

func TestRecurringEventWizard(t *testing.T) {
	c, p := setup(t, "", "", nil)
	events := c.Agenda().Events

	p.answer("15", "Gym", "0", "w")
	c.Handle("A")
	require.Equal(t, 1, events.Len())
	ev := events.Items()[0]
	assert.Equal(t, model.NewDate(2024, 3, 15), ev.Date)
	assert.Equal(t, 2, ev.Repetition)
	assert.Equal(t, model.Weekly, ev.Frequency)

	p.answer("16", "Yoga", "3", "fortnightly")
	c.Handle("A")
	p.answer("32")
	c.Handle("A")
	p.answer("16", "Yoga", "-2")
	c.Handle("A")
	assert.Equal(t, 1, events.Len())
}

func TestMoveEventDay(t *testing.T) {
	c, p := setup(t, "", "1,2024,3,5,\"Dentist\",1,once,normal\n", nil)
	p.answer("1", "20")
	c.Handle("M")
	assert.Equal(t, model.NewDate(2024, 3, 20), c.Agenda().Events.Items()[0].Date)

	p.answer("1", "2024/05/01")
	c.Handle("m")
	assert.Equal(t, model.NewDate(2024, 5, 1), c.Agenda().Events.Items()[0].Date)
}

func TestNavigation(t *testing.T) {
	c, p := setup(t, "", "", nil)

	c.Feed("n")
	assert.Equal(t, model.NewDate(2024, 4, 1), c.Day())
	c.Feed("left")
	c.Feed("p")
	assert.Equal(t, model.NewDate(2024, 2, 1), c.Day())

	c.Feed("R")
	c.Feed("v")
	assert.Equal(t, Daily, c.Mode())
	c.Feed("j")
	assert.Equal(t, model.NewDate(2024, 3, 11), c.Day())

	c.Feed("w")
	assert.Equal(t, Weekly, c.Mode())
	c.Feed("k")
	assert.Equal(t, model.NewDate(2024, 3, 4), c.Day())
	c.Feed("w")
	assert.Equal(t, Monthly, c.Mode())

	p.answer("2024-12-25")
	c.Feed("g")
	assert.Equal(t, model.NewDate(2024, 12, 25), c.Day())
	assert.Equal(t, Daily, c.Mode())

	p.answer("31")
	c.Feed("G")
	assert.Equal(t, model.NewDate(2024, 12, 31), c.Day())
	c.Feed("home")
	assert.Equal(t, model.NewDate(2024, 3, 10), c.Day())

	c.Feed("W")
	c.Feed("*")
	assert.True(t, c.WeekNumbers())
	assert.True(t, c.HidePrivate())

	c.Feed("?")
	assert.Equal(t, ScreenHelp, c.Screen())
	c.Feed("n")
	assert.Equal(t, ScreenHelp, c.Screen())
	c.Feed("esc")
	assert.Equal(t, ScreenCalendar, c.Screen())
	c.Feed(" ")
	assert.Equal(t, ScreenJournal, c.Screen())
	c.Feed("btab")
	assert.Equal(t, ScreenCalendar, c.Screen())
}

func TestWeekDays(t *testing.T) {
	c, _ := setup(t, "", "", nil)
	days := c.WeekDays()
	require.Len(t, days, 7)
	assert.Equal(t, model.NewDate(2024, 3, 4), days[0])
	assert.Equal(t, model.NewDate(2024, 3, 10), days[6])

	c, _ = setup(t, "", "", func(cfg *config.Config) { cfg.WeekStart = "sunday" })
	assert.Equal(t, model.NewDate(2024, 3, 10), c.WeekDays()[0])
}

func TestCalendarViewFollowsMode(t *testing.T) {
	events := "1,2024,3,1,\"First\",1,once,normal\n" +
		"2,2024,3,10,\"Today\",1,once,normal\n" +
		"3,2024,3,6,\"Midweek\",1,once,normal\n" +
		"4,2024,4,1,\"Next month\",1,once,normal\n"
	c, _ := setup(t, "", events, nil)

	assert.Equal(t, 3, c.CalendarView().Len())
	c.Feed("w")
	assert.Equal(t, 2, c.CalendarView().Len())
	c.Feed("v")
	require.Equal(t, 1, c.CalendarView().Len())
	assert.Equal(t, "Today", c.CalendarView().At(0).Name)
}

func TestQuit(t *testing.T) {
	c, p := setup(t, "", "", nil)

	p.confirm(false)
	c.Feed("Z")
	c.Feed("Z")
	assert.False(t, c.Done())

	p.confirm(true)
	c.Feed("Z")
	c.Feed("Q")
	assert.True(t, c.Done())

	c, p = setup(t, "", "", func(cfg *config.Config) { cfg.AskConfirmationToQuit = false })
	c.Feed("q")
	assert.True(t, c.Done())
	assert.Empty(t, p.asked)
}

func TestZThenOtherKeyIsDispatched(t *testing.T) {
	c, _ := setup(t, "", "", nil)
	c.Feed("Z")
	c.Feed("n")
	assert.False(t, c.Done())
	assert.Equal(t, model.NewDate(2024, 4, 1), c.Day())
}

func TestBulkStatusNeedsConfirmation(t *testing.T) {
	c, p := setup(t, "0,0,0,\"One\",normal\n0,0,0,\"Two\",important\n", "", nil)
	tasks := c.Agenda().Tasks
	c.Feed("tab")

	p.confirm(false)
	c.Feed("V")
	assert.False(t, tasks.Changed())

	p.confirm(true)
	c.Feed("D")
	for _, task := range tasks.Items() {
		assert.Equal(t, model.StatusDone, task.Status)
	}

	c, p = setup(t, "0,0,0,\"One\",normal\n", "", func(cfg *config.Config) { cfg.AskConfirmations = false })
	c.Feed("tab")
	c.Feed("I")
	assert.Equal(t, model.StatusImportant, c.Agenda().Tasks.Items()[0].Status)
	assert.Empty(t, p.asked)
}

func TestJournalAddAndMove(t *testing.T) {
	c, p := setup(t, "0,0,0,\"One\",normal\n0,0,0,\"Two\",normal\n", "", nil)
	tasks := c.Agenda().Tasks
	c.Feed("tab")

	p.answer("Zero")
	c.Feed("t")
	p.answer("Three")
	c.Feed("a")
	assert.Equal(t, []string{"Zero", "One", "Two", "Three"}, names(tasks.Items()))

	p.answer("4", "1")
	c.Handle("m")
	assert.Equal(t, []string{"Three", "Zero", "One", "Two"}, names(tasks.Items()))

	p.answer("2", "Sub")
	c.Handle("A")
	assert.Equal(t, []string{"Three", "Zero", "Sub", "One", "Two"}, names(tasks.Items()))
	assert.True(t, tasks.Items()[2].Subtask)

	p.answer("2")
	c.Handle("o")
	assert.Equal(t, 4, c.JournalView().Len())
	p.answer("3")
	c.Handle("x")
	assert.Equal(t, 5, tasks.Len(), "declined delete keeps the task")
}

func TestJournalDeleteTombstonesRemote(t *testing.T) {
	c, p := setup(t, "0,0,0,\"Local\",normal\n", "", nil)
	ag := c.Agenda()
	remote := model.NewTask(2, "Remote")
	remote.Origin = &model.RemoteOrigin{RemoteID: "page-1"}
	ag.Tasks.Add(remote)
	c.Feed("tab")

	p.answer("2")
	p.confirm(true)
	c.Handle("x")
	assert.Equal(t, 1, ag.Tasks.Len())
	assert.True(t, ag.Tombstones().Has("page-1"))
	assert.Contains(t, p.asked, `Really delete task "Remote"?`)
}

func TestTimerOneAtATime(t *testing.T) {
	c, p := setup(t, "0,0,0,\"One\",normal\n0,0,0,\"Two\",normal\n", "", func(cfg *config.Config) {
		cfg.OneTimerAtATime = true
	})
	tasks := c.Agenda().Tasks
	c.Feed("tab")

	p.answer("1")
	c.Handle("s")
	p.answer("2")
	c.Handle("s")

	one, _ := tasks.Get(1)
	two, _ := tasks.Get(2)
	assert.False(t, one.Timer.Running())
	assert.Len(t, one.Timer.Stamps, 2)
	assert.True(t, two.Timer.Running())

	p.answer("2")
	c.Handle("T")
	assert.Empty(t, two.Timer.Stamps)
}

func TestDeadline(t *testing.T) {
	c, p := setup(t, "0,0,0,\"One\",normal\n", "", nil)
	c.Feed("tab")

	p.answer("1", "2024-03-20")
	c.Handle("f")
	task, _ := c.Agenda().Tasks.Get(1)
	assert.Equal(t, model.NewDate(2024, 3, 20), task.Date)

	p.answer("1")
	c.Handle("F")
	assert.True(t, task.Date.IsZero())
}

func TestRemoteStatusChooserKeepsLocalChange(t *testing.T) {
	c, p := setup(t, "", "", nil)
	ag := c.Agenda()
	remote := model.NewTask(1, "Remote")
	origin := &model.RemoteOrigin{
		RemoteID:      "page-1",
		StatusOptions: []model.StatusOption{{ID: "a", Name: "Todo"}, {ID: "b", Name: "Done"}},
		CurrentStatus: "Todo",
	}
	remote.Origin = origin
	ag.Tasks.Add(remote)
	c.Feed("tab")

	p.answer("1", "2")
	c.Handle("c")
	assert.Equal(t, "Done", origin.CurrentStatus)
	assert.Equal(t, model.StatusDone, remote.Status)
	assert.Contains(t, p.asked, "Select status (1.Todo | 2.Done): ")
}

func TestParseDate(t *testing.T) {
	sys := calendar.Gregorian{}
	cases := []struct {
		in   string
		want model.Date
		ok   bool
	}{
		{"2024-03-05", model.NewDate(2024, 3, 5), true},
		{"2024/3/5", model.NewDate(2024, 3, 5), true},
		{" 2024 3 5 ", model.NewDate(2024, 3, 5), true},
		{"2024.02.29", model.NewDate(2024, 2, 29), true},
		{"2023-02-29", model.Date{}, false},
		{"2024-13-01", model.Date{}, false},
		{"2024-03", model.Date{}, false},
		{"", model.Date{}, false},
		{"a-b-c", model.Date{}, false},
	}
	for _, tc := range cases {
		got, ok := parseDate(tc.in, sys)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseClock(t *testing.T) {
	c, ok := parseClock("9:05")
	assert.True(t, ok)
	assert.Equal(t, model.Clock{Hour: 9, Minute: 5}, c)

	c, ok = parseClock("18:")
	assert.True(t, ok)
	assert.Equal(t, model.Clock{Hour: 18}, c)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, ok := parseClock(bad)
		assert.False(t, ok, bad)
	}
}
