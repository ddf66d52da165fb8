package agenda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

const feed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:x\r\n" +
	"BEGIN:VEVENT\r\nUID:a\r\nSUMMARY:Offsite\r\nDTSTART;VALUE=DATE:20240305\r\nDTEND;VALUE=DATE:20240306\r\nEND:VEVENT\r\n" +
	"BEGIN:VTODO\r\nUID:t\r\nSUMMARY:File taxes\r\nDUE;VALUE=DATE:20240301\r\nEND:VTODO\r\n" +
	"END:VCALENDAR\r\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.csv"), []byte("2024,3,1,\"Meeting\",normal\n0,0,0,\".Secret\",important\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.csv"), []byte("5,2024,3,1,\"Trip\",3,daily,normal\n6,2024,3,1,\"Call\",1,once,normal,9,30,10,0\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.ics"), []byte(feed), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abook"), []byte("[0]\nname=Ada\nbirthday=1990-03-01\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.TasksFile = filepath.Join(dir, "tasks.csv")
	cfg.EventsFile = filepath.Join(dir, "events.csv")
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Timezone = "UTC"
	cfg.ICSEvents = []config.ICSConfig{{Path: filepath.Join(dir, "feed.ics")}, {Path: filepath.Join(dir, "missing.ics")}}
	cfg.ICSTasks = []config.ICSConfig{{Path: filepath.Join(dir, "feed.ics")}}
	cfg.Birthdays = config.BirthdayConfig{Enabled: true, Abook: filepath.Join(dir, "abook")}
	return cfg
}

func TestLoadMergesSources(t *testing.T) {
	a, err := New(testConfig(t), appLog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Load(context.Background()))

	assert.Equal(t, 2, a.Events.Len())
	assert.Equal(t, 2, a.Tasks.Len())
	assert.False(t, a.Dirty())
	assert.Equal(t, 2, a.Imported.Len())
	assert.Equal(t, 1, a.ImportedTasks.Len())

	day := a.EventsOn(model.NewDate(2024, 3, 1))
	var names []string
	for _, ev := range day {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"Trip", "Ada", "Call"}, names)

	assert.Len(t, a.EventsIn(2024, 3), 4)
	assert.Len(t, a.EventsOn(model.NewDate(2024, 3, 4)), 0)

	due := a.Deadlines(model.NewDate(2024, 3, 1))
	require.Len(t, due, 2)
	assert.Equal(t, "Meeting", due[0].Name)
	assert.Equal(t, "File taxes", due[1].Name)

	st := a.Stats()
	assert.Equal(t, 2, st.Tasks)
	assert.Equal(t, 0, st.RemoteTasks)
	assert.False(t, st.LastReload.IsZero())
}

func TestSaveOnlyWhenDirty(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, appLog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Load(context.Background()))

	before, err := os.ReadFile(cfg.EventsFile)
	require.NoError(t, err)

	a.Tasks.ToggleStatus(1, model.StatusImportant)
	require.NoError(t, a.Save())
	assert.False(t, a.Dirty())

	after, err := os.ReadFile(cfg.EventsFile)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	tasks, err := os.ReadFile(cfg.TasksFile)
	require.NoError(t, err)
	assert.Contains(t, string(tasks), `2024,3,1,"Meeting",important`)
}

func TestRemoteRowsAreReplacedOnReload(t *testing.T) {
	var queries atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/databases/db":
			_, _ = w.Write([]byte(`{"properties":{"Status":{"type":"select","select":{"options":[{"id":"1","name":"Todo"}]}}}}`))
		case "/v1/databases/db/query":
			queries.Add(1)
			_, _ = w.Write([]byte(`{"results":[` +
				`{"id":"r1","properties":{"Task name":{"type":"title","title":[{"plain_text":"Remote one"}]},"Status":{"type":"select","select":{"name":"Todo"}}}},` +
				`{"id":"r2","properties":{"Task name":{"type":"title","title":[{"plain_text":"Remote two"}]},"Status":{"type":"select","select":{"name":"Urgent"}}}}` +
				`],"has_more":false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.ICSEvents, cfg.ICSTasks = nil, nil
	cfg.Notion = config.NotionConfig{Enabled: true, BaseURL: srv.URL, TimeoutSeconds: 5, Token: "tok", DatabaseID: "db"}

	a, err := New(cfg, appLog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Load(context.Background()))

	require.Equal(t, 5, a.Tasks.Len())
	header := a.Tasks.Items()[2]
	assert.True(t, header.Header)
	assert.Equal(t, "No Project", header.Name)
	remote := a.Tasks.Items()[3]
	assert.Equal(t, 3, remote.ID)
	assert.Equal(t, model.StatusNormal, remote.Status)
	assert.Equal(t, model.StatusImportant, a.Tasks.Items()[4].Status)
	assert.False(t, a.Dirty())

	a.Tasks.Delete(remote.ID)
	origin, _ := model.Remote(remote.Origin)
	a.Tombstones().Add(origin.RemoteID)

	a.Reload(context.Background())
	assert.Equal(t, int32(2), queries.Load())
	require.Equal(t, 4, a.Tasks.Len())
	assert.Equal(t, "Remote two", a.Tasks.Items()[3].Name)
	assert.Equal(t, 1, a.Stats().RemoteTasks)
	assert.Equal(t, 1, a.Stats().Tombstones)

	require.NoError(t, a.Save())
	saved, err := os.ReadFile(cfg.TasksFile)
	require.NoError(t, err)
	assert.NotContains(t, string(saved), "Remote")
}

func TestToday(t *testing.T) {
	cfg := testConfig(t)
	cfg.Calendar = "persian"
	a, err := New(cfg, appLog.Nop())
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(1403, 1, 1), a.Today(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)))
}
