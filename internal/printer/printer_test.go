package printer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termcal/internal/agenda"
	"termcal/internal/config"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

func init() {
	color.NoColor = true
}

func testAgenda(t *testing.T) *agenda.Agenda {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.TasksFile = filepath.Join(dir, "tasks.csv")
	cfg.EventsFile = filepath.Join(dir, "events.csv")
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Timezone = "UTC"
	require.NoError(t, os.WriteFile(cfg.EventsFile, []byte(
		"1,2024,3,5,\"Dentist\",1,once,important,9,0,10,30\n"+
			"2,2024,3,11,\".Interview\",1,once,normal\n"+
			"3,2024,3,25,\"Standup\",2,weekly,normal,9,15,9,30\n"), 0o600))
	require.NoError(t, os.WriteFile(cfg.TasksFile, []byte(
		"2024,3,5,\"Pay rent\",done\n0,0,0,\"Plan trip\",normal\n0,0,0,\"--Book hotel\",normal\n"), 0o600))

	ag, err := agenda.New(cfg, appLog.Nop())
	require.NoError(t, err)
	require.NoError(t, ag.Load(context.Background()))
	return ag
}

func TestDay(t *testing.T) {
	var out bytes.Buffer
	p := New(&out)
	p.Day(testAgenda(t), model.NewDate(2024, 3, 5))

	s := out.String()
	assert.Contains(t, s, "2024-03-05 Tuesday")
	assert.Contains(t, s, "09:00-10:30")
	assert.Contains(t, s, "Dentist")
	assert.Contains(t, s, "due")
	assert.Contains(t, s, "Pay rent")
}

func TestEmptyDay(t *testing.T) {
	var out bytes.Buffer
	New(&out).Day(testAgenda(t), model.NewDate(2024, 3, 6))
	assert.Contains(t, out.String(), "none")
}

func TestMonth(t *testing.T) {
	var out bytes.Buffer
	p := New(&out)
	p.HidePrivate = true
	p.Month(testAgenda(t), 2024, 3)

	s := out.String()
	assert.Contains(t, s, "2024/03")
	assert.Contains(t, s, "2024-03-05 tue")
	assert.Contains(t, s, "(private)")
	assert.NotContains(t, s, "Interview")
	assert.Contains(t, s, "Standup")
	assert.NotContains(t, s, "2024-04-01", "occurrences outside the month are not listed")

	out.Reset()
	p.Month(testAgenda(t), 2024, 4)
	assert.Contains(t, out.String(), "2024-04-01 mon")
}

func TestTasks(t *testing.T) {
	var out bytes.Buffer
	New(&out).Tasks(testAgenda(t))

	s := out.String()
	assert.Contains(t, s, "Journal")
	assert.Contains(t, s, "Plan trip")
	assert.Contains(t, s, "  Book hotel")
	assert.Contains(t, s, "2024-03-05")
}
