package notion

import (
	"context"
	"errors"
	"time"

	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

// Property names of the task database.
const (
	propTitle       = "Task name"
	propStatus      = "Status"
	propProject     = "Project"
	propResponsible = "Responsible"

	untitledTask = "Untitled Task"
	noProject    = "No Project"
)

var (
	importantFamily = []string{"High", "Urgent"}
	doneFamily      = []string{"Done", "Completed"}
)

// Tombstones records remote ids deleted locally during this process so the
// next fetch leaves them out.
type Tombstones struct {
	ids map[string]struct{}
}

func NewTombstones() *Tombstones {
	return &Tombstones{ids: make(map[string]struct{})}
}

func (t *Tombstones) Add(id string) {
	if t == nil || id == "" {
		return
	}
	t.ids[id] = struct{}{}
}

func (t *Tombstones) Has(id string) bool {
	if t == nil {
		return false
	}
	_, ok := t.ids[id]
	return ok
}

func (t *Tombstones) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ids)
}

// Synchronizer fetches open tasks from the database and mirrors local status
// changes back to it. A disabled synchronizer fetches nothing and pushes
// nothing.
type Synchronizer struct {
	client      *Client
	databaseID  string
	responsible string
	timeout     time.Duration
	logger      *appLog.Logger

	// projects caches project page id to title for the whole process.
	projects map[string]string
}

func NewSynchronizer(cfg config.NotionConfig, logger *appLog.Logger) *Synchronizer {
	logger = logger.With("component", "notion")
	s := &Synchronizer{
		databaseID:  cfg.DatabaseID,
		responsible: cfg.Responsible,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:      logger,
		projects:    make(map[string]string),
	}
	if s.timeout <= 0 {
		s.timeout = 10 * time.Second
	}
	if !cfg.Ready() {
		logger.Info("notion sync disabled", "enabled", cfg.Enabled, "token_set", cfg.Token != "", "database_set", cfg.DatabaseID != "")
		return s
	}
	s.client = NewClient(cfg.BaseURL, cfg.Token, s.timeout)
	return s
}

// Enabled reports whether the synchronizer has credentials.
func (s *Synchronizer) Enabled() bool { return s != nil && s.client != nil }

// Fetch returns the open tasks assigned to the responsible person, sorted
// by project, with one header row before each project's tasks. Pages whose
// id is in tomb are skipped. Ids are left at zero for the owner to assign.
func (s *Synchronizer) Fetch(ctx context.Context, tomb *Tombstones) ([]*model.Task, error) {
	if !s.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	options := s.statusOptions(ctx)

	pages, err := s.queryOpen(ctx)
	if err != nil {
		s.logger.Error("notion query failed", err, "database", s.databaseID)
		return nil, err
	}

	tasks := make([]*model.Task, 0, len(pages))
	currentProject := ""
	first := true
	skipped := 0
	for _, page := range pages {
		if tomb.Has(page.ID) {
			skipped++
			continue
		}
		if !s.isResponsible(page) {
			continue
		}

		projectID := noProject
		if rel := page.Properties[propProject].Relation; len(rel) > 0 && rel[0].ID != "" {
			projectID = rel[0].ID
		}
		project := s.projectName(ctx, projectID)
		if first || projectID != currentProject {
			tasks = append(tasks, model.NewHeader(project))
			currentProject = projectID
			first = false
		}

		name := page.Properties[propTitle].plainTitle()
		if name == "" {
			name = untitledTask
		}
		remoteStatus := page.Properties[propStatus].optionName()

		task := model.NewTask(0, name)
		task.Status = MapStatus(remoteStatus)
		task.Project = project
		task.Origin = &model.RemoteOrigin{
			RemoteID:      page.ID,
			StatusOptions: append([]model.StatusOption(nil), options...),
			CurrentStatus: remoteStatus,
		}
		tasks = append(tasks, task)
	}

	s.logger.Info("notion tasks fetched", "results", len(pages), "rows", len(tasks), "tombstoned", skipped)
	return tasks, nil
}

// queryOpen follows pagination over every task not in the done family.
func (s *Synchronizer) queryOpen(ctx context.Context) ([]Page, error) {
	q := QueryRequest{
		Filter: &Filter{And: []PropertyFilter{
			{Property: propStatus, Status: &StatusCondition{DoesNotEqual: "Done"}},
			{Property: propStatus, Status: &StatusCondition{DoesNotEqual: "Completed"}},
		}},
		Sorts: []Sort{{Property: propProject, Direction: "ascending"}},
	}

	var pages []Page
	for {
		resp, err := s.client.QueryDatabase(ctx, s.databaseID, q)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return pages, nil
		}
		q.StartCursor = *resp.NextCursor
	}
}

// statusOptions reads the Status property options from the schema. Errors
// are logged and yield no options.
func (s *Synchronizer) statusOptions(ctx context.Context) []model.StatusOption {
	db, err := s.client.Database(ctx, s.databaseID)
	if err != nil {
		s.logger.Warn("notion schema fetch failed", "database", s.databaseID, "error", err.Error())
		return nil
	}

	prop, ok := db.Properties[propStatus]
	if !ok {
		return nil
	}
	var list *OptionList
	switch prop.Type {
	case "status":
		list = prop.Status
	case "select":
		list = prop.Select
	}
	if list == nil {
		return nil
	}
	out := make([]model.StatusOption, 0, len(list.Options))
	for _, opt := range list.Options {
		out = append(out, model.StatusOption{ID: opt.ID, Name: opt.Name})
	}
	return out
}

func (s *Synchronizer) isResponsible(page Page) bool {
	if s.responsible == "" {
		return true
	}
	for _, person := range page.Properties[propResponsible].People {
		if person.Name == s.responsible {
			return true
		}
	}
	return false
}

// projectName resolves a project page to its title. Lookups that fail fall
// back to the id and are cached like successful ones.
func (s *Synchronizer) projectName(ctx context.Context, id string) string {
	if id == noProject {
		return noProject
	}
	if name, ok := s.projects[id]; ok {
		return name
	}

	name := id
	page, err := s.client.Page(ctx, id)
	if err != nil {
		s.logger.Warn("notion project lookup failed", "project", id, "error", err.Error())
	} else if title := pageTitle(page); title != "" {
		name = title
	}
	s.projects[id] = name
	return name
}

// pageTitle tries Name, then Title, then any title-typed property.
func pageTitle(page *Page) string {
	for _, key := range []string{"Name", "Title"} {
		if prop, ok := page.Properties[key]; ok {
			if t := prop.plainTitle(); t != "" {
				return t
			}
		}
	}
	for _, prop := range page.Properties {
		if prop.Type == "title" {
			if t := prop.plainTitle(); t != "" {
				return t
			}
		}
	}
	return ""
}

// MapStatus maps a remote status name onto the local vocabulary.
func MapStatus(remote string) model.Status {
	switch {
	case inFamily(remote, importantFamily):
		return model.StatusImportant
	case inFamily(remote, doneFamily):
		return model.StatusDone
	default:
		return model.StatusNormal
	}
}

func inFamily(name string, family []string) bool {
	for _, f := range family {
		if name == f {
			return true
		}
	}
	return false
}

// PickStatus chooses the remote option that mirrors a local change from old
// to updated. It reports false when nothing should be pushed.
func PickStatus(options []model.StatusOption, old, updated model.Status) (string, bool) {
	landing := func(family []string) (string, bool) {
		if len(options) == 0 {
			return family[0], true
		}
		for _, opt := range options {
			if inFamily(opt.Name, family) {
				return opt.Name, true
			}
		}
		return "", false
	}
	leaving := func(family []string) (string, bool) {
		for _, opt := range options {
			if !inFamily(opt.Name, family) {
				return opt.Name, true
			}
		}
		return "", false
	}

	switch {
	case updated == old:
		return "", false
	case updated == model.StatusImportant:
		return landing(importantFamily)
	case updated == model.StatusDone:
		return landing(doneFamily)
	case old == model.StatusImportant:
		return leaving(importantFamily)
	case old == model.StatusDone:
		return leaving(doneFamily)
	default:
		return "", false
	}
}

// StatusChanged mirrors a local status toggle on a remote task. Failures
// are logged and never returned.
func (s *Synchronizer) StatusChanged(ctx context.Context, task *model.Task, old, updated model.Status) {
	origin, ok := model.Remote(task.Origin)
	if !ok || origin.RemoteID == "" {
		return
	}
	name, ok := PickStatus(origin.StatusOptions, old, updated)
	if !ok {
		s.logger.Debug("notion status unchanged", "page", origin.RemoteID, "old", old.String(), "new", updated.String())
		return
	}
	_ = s.SetStatus(ctx, task, name)
}

// SetStatus pushes a named status for a remote task and records it as the
// current remote status on success.
func (s *Synchronizer) SetStatus(ctx context.Context, task *model.Task, name string) error {
	origin, ok := model.Remote(task.Origin)
	if !ok || origin.RemoteID == "" {
		return errors.New("notion: task is not remote")
	}
	if !s.Enabled() {
		return errors.New("notion: sync disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.UpdateStatus(ctx, origin.RemoteID, name); err != nil {
		s.logger.Error("notion push failed", err, "page", origin.RemoteID, "status", name)
		return err
	}
	origin.CurrentStatus = name
	s.logger.Info("notion status pushed", "page", origin.RemoteID, "status", name)
	return nil
}
