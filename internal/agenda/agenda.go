// Package agenda owns every collection of the organizer and wires the
// codecs, loaders and the remote synchronizer around them.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"termcal/internal/calendar"
	"termcal/internal/config"
	"termcal/internal/csvstore"
	"termcal/internal/holiday"
	"termcal/internal/ics"
	appLog "termcal/internal/log"
	"termcal/internal/model"
	"termcal/internal/notion"
	"termcal/internal/recur"
)

// Agenda holds the user's own items alongside the read-only imported ones.
// Reload and the query helpers may be called from several goroutines;
// direct mutation of the collections belongs to a single owner.
type Agenda struct {
	cfg    *config.Config
	sys    calendar.System
	loc    *time.Location
	logger *appLog.Logger

	store    *csvstore.Store
	resolver *ics.Resolver
	parser   *ics.Parser
	holidays *holiday.Loader
	remote   *notion.Synchronizer
	tomb     *notion.Tombstones
	engine   *recur.Engine

	mu sync.RWMutex

	// Events and Tasks are saved to the local files. Tasks also carries
	// the remote rows, which the codec skips.
	Events *model.Events
	Tasks  *model.Tasks

	// Imported holds ICS events, holidays and birthdays.
	Imported      *model.Events
	ImportedTasks *model.Tasks

	lastReload time.Time
}

// New builds an agenda from cfg. Paths in cfg may start with ~.
func New(cfg *config.Config, logger *appLog.Logger) (*Agenda, error) {
	sys, err := calendar.Named(cfg.Calendar)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		} else {
			loc = l
		}
	}

	fetcher := ics.NewFetcher(config.Expand(cfg.CacheDir), logger)
	a := &Agenda{
		cfg:           cfg,
		sys:           sys,
		loc:           loc,
		logger:        logger.With("component", "agenda"),
		store:         csvstore.New(sys, logger),
		resolver:      ics.NewResolver(fetcher, logger),
		parser:        ics.NewParser(sys, loc, logger),
		holidays:      holiday.NewLoader(sys, logger),
		remote:        notion.NewSynchronizer(cfg.Notion, logger),
		tomb:          notion.NewTombstones(),
		engine:        recur.New(sys, loc, logger),
		Events:        &model.Events{},
		Tasks:         &model.Tasks{},
		Imported:      &model.Events{},
		ImportedTasks: &model.Tasks{},
	}
	return a, nil
}

func (a *Agenda) System() calendar.System { return a.sys }
func (a *Agenda) Location() *time.Location { return a.loc }
func (a *Agenda) Engine() *recur.Engine { return a.engine }
func (a *Agenda) Remote() *notion.Synchronizer { return a.remote }
func (a *Agenda) Tombstones() *notion.Tombstones { return a.tomb }
func (a *Agenda) Config() *config.Config { return a.cfg }
func (a *Agenda) Today(now time.Time) model.Date { return calendar.Today(a.sys, now.In(a.loc)) }

// Load reads the local files and then imports every other source.
func (a *Agenda) Load(ctx context.Context) error {
	events, err := a.store.LoadEvents(config.Expand(a.cfg.EventsFile))
	if err != nil {
		return fmt.Errorf("agenda: load events: %w", err)
	}
	tasks, err := a.store.LoadTasks(config.Expand(a.cfg.TasksFile))
	if err != nil {
		return fmt.Errorf("agenda: load tasks: %w", err)
	}

	a.mu.Lock()
	a.Events.Replace(func(*model.Event) bool { return true }, events)
	a.Tasks.Replace(func(*model.Task) bool { return true }, tasks)
	a.mu.Unlock()

	a.Reload(ctx)
	return nil
}

// Reload refreshes imported calendars, holidays, birthdays and remote
// tasks. Source failures are logged and leave the other sources intact.
func (a *Agenda) Reload(ctx context.Context) {
	start := time.Now()

	imported := a.importEvents(ctx)
	importedTasks := a.importTasks(ctx)
	imported = append(imported, a.specialEvents(start)...)
	for i, ev := range imported {
		ev.ID = i + 1
	}
	for i, t := range importedTasks {
		t.ID = i + 1
	}

	remote, remoteErr := a.remote.Fetch(ctx, a.tomb)

	a.mu.Lock()
	a.Imported.Replace(func(*model.Event) bool { return true }, imported)
	a.ImportedTasks.Replace(func(*model.Task) bool { return true }, importedTasks)
	if remoteErr == nil && a.remote.Enabled() {
		a.replaceRemote(remote)
	}
	a.lastReload = time.Now()
	a.mu.Unlock()

	a.logger.Info("agenda reloaded",
		"imported_events", len(imported),
		"imported_tasks", len(importedTasks),
		"remote_rows", len(remote),
		"elapsed", time.Since(start).String(),
	)
}

// replaceRemote swaps every remote row for rows, numbering the remote
// tasks after the local ones.
func (a *Agenda) replaceRemote(rows []*model.Task) {
	next := 1
	for _, t := range a.Tasks.Items() {
		if t.Local() && t.ID >= next {
			next = t.ID + 1
		}
	}
	for _, t := range rows {
		if !t.Header {
			t.ID = next
			next++
		}
	}
	a.Tasks.Replace(func(t *model.Task) bool {
		_, remote := model.Remote(t.Origin)
		return remote
	}, rows)
}

func (a *Agenda) importEvents(ctx context.Context) []*model.Event {
	var out []*model.Event
	for i, src := range a.cfg.ICSEvents {
		docs, err := a.resolver.Resolve(ctx, src.Path)
		if err != nil {
			a.logger.Error("ics source failed", err, "source", i, "name", src.Name)
			continue
		}
		for _, doc := range docs {
			events, err := a.parser.ParseEvents(i, doc)
			if err != nil {
				continue
			}
			out = append(out, events...)
		}
	}
	return out
}

func (a *Agenda) importTasks(ctx context.Context) []*model.Task {
	var out []*model.Task
	for i, src := range a.cfg.ICSTasks {
		docs, err := a.resolver.Resolve(ctx, src.Path)
		if err != nil {
			a.logger.Error("ics source failed", err, "source", i, "name", src.Name)
			continue
		}
		for _, doc := range docs {
			tasks, err := a.parser.ParseTasks(i, doc)
			if err != nil {
				continue
			}
			out = append(out, tasks...)
		}
	}
	return out
}

// specialEvents returns holidays for the surrounding years and birthdays.
func (a *Agenda) specialEvents(now time.Time) []*model.Event {
	var out []*model.Event
	if a.cfg.Holidays.Enabled {
		year := now.In(a.loc).Year()
		hs, err := a.holidays.Holidays(a.cfg.Holidays.Country, year-1, year+1)
		if err != nil {
			a.logger.Error("holidays failed", err, "country", a.cfg.Holidays.Country)
		}
		out = append(out, hs...)
	}
	if a.cfg.Birthdays.Enabled {
		bs, err := a.holidays.Birthdays(config.Expand(a.cfg.Birthdays.Abook))
		if err != nil {
			a.logger.Error("birthdays failed", err, "abook", a.cfg.Birthdays.Abook)
		}
		out = append(out, bs...)
	}
	return out
}

// Save writes whichever local collection is dirty.
func (a *Agenda) Save() error {
	var errs []error
	if a.Events.Changed() {
		if err := a.store.SaveEvents(config.Expand(a.cfg.EventsFile), a.Events); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Tasks.Changed() {
		if err := a.store.SaveTasks(config.Expand(a.cfg.TasksFile), a.Tasks); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dirty reports whether any local collection has unsaved changes.
func (a *Agenda) Dirty() bool { return a.Events.Changed() || a.Tasks.Changed() }

// EventsOn returns user and imported events occurring on day, all-day
// events first and then by start time.
func (a *Agenda) EventsOn(day model.Date) []*model.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := append(a.engine.FilterDay(&a.Events.Collection, day).Items(),
		a.engine.FilterDay(&a.Imported.Collection, day).Items()...)
	sortByTime(out)
	return out
}

// EventsIn returns the events with an occurrence in the month.
func (a *Agenda) EventsIn(year, month int) []*model.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append(a.engine.FilterMonth(&a.Events.Collection, year, month).Items(),
		a.engine.FilterMonth(&a.Imported.Collection, year, month).Items()...)
}

// Deadlines returns the tasks, local or imported, due on day.
func (a *Agenda) Deadlines(day model.Date) []*model.Task {
	a.mu.RLock()
	defer a.mu.RUnlock()

	due := func(t *model.Task) bool { return !t.Header && t.Date == day }
	return append(a.Tasks.Filter(due).Items(), a.ImportedTasks.Filter(due).Items()...)
}

func sortByTime(events []*model.Event) {
	minutes := func(ev *model.Event) int {
		if ev.Start == nil {
			return -1
		}
		return ev.Start.Hour*60 + ev.Start.Minute
	}
	sort.SliceStable(events, func(i, j int) bool { return minutes(events[i]) < minutes(events[j]) })
}

// Stats is a snapshot of collection sizes.
type Stats struct {
	Events         int
	Tasks          int
	RemoteTasks    int
	ImportedEvents int
	ImportedTasks  int
	Tombstones     int
	LastReload     time.Time
}

func (a *Agenda) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Stats{
		Events:         a.Events.Len(),
		ImportedEvents: a.Imported.Len(),
		ImportedTasks:  a.ImportedTasks.Len(),
		Tombstones:     a.tomb.Len(),
		LastReload:     a.lastReload,
	}
	for _, t := range a.Tasks.Items() {
		switch {
		case t.Header:
		case t.Local():
			st.Tasks++
		default:
			st.RemoteTasks++
		}
	}
	return st
}
