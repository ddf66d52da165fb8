package term

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	xterm "golang.org/x/term"

	"termcal/internal/agenda"
	"termcal/internal/controller"
	appLog "termcal/internal/log"
)

const clearScreen = "\x1b[H\x1b[2J"

// Session is the owning loop: one goroutine handles keys and reload ticks
// and is the only one touching the agenda.
type Session struct {
	ag       *agenda.Agenda
	ctl      *controller.Controller
	out      io.Writer
	renderer *Renderer
	logger   *appLog.Logger
	now      func() time.Time

	keys    <-chan string
	reloads <-chan struct{}
	status  string
}

// NewSession wires a controller to keys. reloads may be nil.
func NewSession(ctx context.Context, ag *agenda.Agenda, keys <-chan string, reloads <-chan struct{}, out io.Writer, logger *appLog.Logger) *Session {
	s := &Session{
		ag:       ag,
		out:      out,
		renderer: NewRenderer(),
		logger:   logger.With("component", "term"),
		now:      time.Now,
		keys:     keys,
		reloads:  reloads,
	}
	s.ctl = controller.New(ag, NewPrompter(keys, out), logger, controller.WithContext(ctx))
	return s
}

func (s *Session) Controller() *controller.Controller { return s.ctl }

// Run handles keys until the controller quits, the input closes or ctx is
// cancelled. Pending changes are saved after every key and on return.
func (s *Session) Run(ctx context.Context) error {
	defer s.save()
	s.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-s.keys:
			if !ok {
				return nil
			}
			if key == KeyCtrlC {
				return nil
			}
			s.status = ""
			s.ctl.Handle(key)
			s.save()
			if s.ctl.Done() {
				return nil
			}
		case <-s.reloads:
			s.ag.Reload(ctx)
			s.status = "reloaded"
		}
		s.draw()
	}
}

func (s *Session) save() {
	if !s.ag.Dirty() {
		return
	}
	if err := s.ag.Save(); err != nil {
		s.logger.Error("save failed", err)
		s.status = "save failed: " + err.Error()
	}
}

func (s *Session) draw() {
	screen := s.renderer.Render(s.ctl, s.now(), s.status)
	// Raw mode does not translate newlines.
	fmt.Fprint(s.out, clearScreen+strings.ReplaceAll(screen, "\n", "\r\n"))
}

// Run puts the terminal in raw mode and drives an interactive session on
// stdin and stdout. refresh is a cron schedule for reloading; empty
// disables it.
func Run(ctx context.Context, ag *agenda.Agenda, refresh string, logger *appLog.Logger) error {
	fd := int(os.Stdin.Fd())
	if !xterm.IsTerminal(fd) {
		return errors.New("term: stdin is not a terminal")
	}
	state, err := xterm.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("term: raw mode: %w", err)
	}
	defer func() {
		_ = xterm.Restore(fd, state)
		fmt.Fprint(os.Stdout, clearScreen)
	}()

	keys := make(chan string)
	go readKeys(os.Stdin, keys)

	reloads, stop, err := schedule(refresh, logger)
	if err != nil {
		return err
	}
	defer stop()

	return NewSession(ctx, ag, keys, reloads, os.Stdout, logger).Run(ctx)
}

// schedule starts a cron job that signals reloads. Ticks are dropped while
// a previous one is still waiting.
func schedule(spec string, logger *appLog.Logger) (<-chan struct{}, func(), error) {
	if spec == "" {
		return nil, func() {}, nil
	}
	reloads := make(chan struct{}, 1)
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	}); err != nil {
		return nil, nil, fmt.Errorf("term: refresh schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Info("reload scheduled", "spec", spec)
	return reloads, func() { c.Stop() }, nil
}
