// Package controller turns key presses into edits of the agenda. It is a
// two-state machine: Idle dispatches keys, Selecting waits for the number
// of the item a pending command applies to.
package controller

import (
	"context"
	"strconv"
	"strings"
	"time"

	"termcal/internal/agenda"
	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

// Prompter reads answers from the user. Line returns the typed text, empty
// when the user cancelled.
type Prompter interface {
	Line(prompt string) string
	Confirm(question string) bool
}

type Screen int

const (
	ScreenCalendar Screen = iota
	ScreenJournal
	ScreenHelp
)

func (s Screen) String() string {
	switch s {
	case ScreenJournal:
		return "journal"
	case ScreenHelp:
		return "help"
	default:
		return "calendar"
	}
}

type Mode int

const (
	Monthly Mode = iota
	Weekly
	Daily
)

func (m Mode) String() string {
	switch m {
	case Weekly:
		return "weekly"
	case Daily:
		return "daily"
	default:
		return "monthly"
	}
}

// Selection is a command waiting for its target. View resolves the ids of
// the active view at the moment the number arrives; Apply runs the effect.
type Selection struct {
	Key    string
	Prompt string
	View   func() []int
	Apply  func(id int)
}

// State is Idle or Selecting.
type State interface {
	isState()
}

type Idle struct{}

type Selecting struct {
	Selection
}

func (Idle) isState()      {}
func (Selecting) isState() {}

// Controller owns the interaction state. It is not safe for concurrent use;
// the terminal loop calls it from one goroutine.
type Controller struct {
	ag     *agenda.Agenda
	prompt Prompter
	logger *appLog.Logger
	ctx    context.Context
	now    func() time.Time

	state  State
	screen Screen
	mode   Mode
	day    model.Date

	weekNumbers bool
	hidePrivate bool
	lastZ       bool
	quit        bool
}

type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithContext sets the context used for reloads and remote pushes.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

func New(ag *agenda.Agenda, prompt Prompter, logger *appLog.Logger, opts ...Option) *Controller {
	c := &Controller{
		ag:     ag,
		prompt: prompt,
		logger: logger.With("component", "controller"),
		ctx:    context.Background(),
		now:    time.Now,
		state:  Idle{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.day = c.today()
	return c
}

func (c *Controller) today() model.Date { return c.ag.Today(c.now()) }

func (c *Controller) State() State { return c.state }
func (c *Controller) Screen() Screen { return c.screen }
func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Day() model.Date { return c.day }
func (c *Controller) WeekNumbers() bool { return c.weekNumbers }
func (c *Controller) HidePrivate() bool { return c.hidePrivate }
func (c *Controller) Done() bool { return c.quit }
func (c *Controller) Agenda() *agenda.Agenda { return c.ag }

// Pending returns the selection being waited for, if any.
func (c *Controller) Pending() (Selection, bool) {
	s, ok := c.state.(Selecting)
	return s.Selection, ok
}

// Handle processes one key and, when it starts a selection, reads the
// number from the prompter.
func (c *Controller) Handle(key string) {
	c.Feed(key)
	if sel, ok := c.Pending(); ok {
		c.Select(c.prompt.Line(sel.Prompt))
	}
}

// Feed processes one key in the Idle state. Keys arriving while a
// selection is pending are ignored.
func (c *Controller) Feed(key string) {
	if _, ok := c.state.(Selecting); ok {
		return
	}

	if c.lastZ {
		c.lastZ = false
		if key == "Z" || key == "Q" {
			c.requestQuit()
			return
		}
	}
	if key == "Z" {
		c.lastZ = true
		return
	}

	switch c.screen {
	case ScreenJournal:
		c.journalKey(key)
	case ScreenHelp:
		c.helpKey(key)
	default:
		c.calendarKey(key)
	}
}

// Select completes a pending selection with the typed text, a one-based
// item number. Anything that is not a valid number for the active view is
// dropped. The controller is Idle afterwards.
func (c *Controller) Select(input string) {
	s, ok := c.state.(Selecting)
	c.state = Idle{}
	if !ok {
		return
	}
	n, ok := parseIndex(input)
	if !ok {
		return
	}
	ids := s.View()
	if n < 0 || n >= len(ids) {
		c.logger.Debug("selection out of range", "key", s.Key, "input", input, "size", len(ids))
		return
	}
	s.Apply(ids[n])
}

// startSelection enters Selecting when the active view has items.
func (c *Controller) startSelection(sel Selection) {
	if len(sel.View()) == 0 {
		return
	}
	c.state = Selecting{Selection: sel}
}

func (c *Controller) confirm(question string, enabled bool) bool {
	if !enabled {
		return true
	}
	return c.prompt.Confirm(question)
}

func (c *Controller) requestQuit() {
	if c.confirm("Really quit?", c.ag.Config().AskConfirmationToQuit) {
		c.quit = true
	}
}

func (c *Controller) reload() {
	c.ag.Reload(c.ctx)
}

// parseIndex converts a one-based number to a zero-based index.
func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n - 1, true
}

// parseDate reads year, month and day separated by '-', '/', '.' or spaces.
func parseDate(s string, sys calendar.System) (model.Date, bool) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == '-' || r == '/' || r == '.' || r == ' '
	})
	if len(fields) != 3 {
		return model.Date{}, false
	}
	var parts [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return model.Date{}, false
		}
		parts[i] = n
	}
	d := model.NewDate(parts[0], parts[1], parts[2])
	if !sys.Valid(d) {
		return model.Date{}, false
	}
	return d, true
}

// parseClock reads HH:MM.
func parseClock(s string) (model.Clock, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return model.Clock{}, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return model.Clock{}, false
	}
	minute := 0
	if m != "" {
		if minute, err = strconv.Atoi(m); err != nil {
			return model.Clock{}, false
		}
	}
	c := model.Clock{Hour: hour, Minute: minute}
	return c, c.Valid()
}

func parseFrequency(s string) (model.Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "daily":
		return model.Daily, true
	case "w", "weekly":
		return model.Weekly, true
	case "m", "monthly":
		return model.Monthly, true
	case "y", "yearly":
		return model.Yearly, true
	default:
		return model.Once, false
	}
}

func idsOf[T model.Entry](v model.View[T]) []int {
	out := make([]int, 0, v.Len())
	for _, it := range v.Items() {
		out = append(out, it.Base().ID)
	}
	return out
}
