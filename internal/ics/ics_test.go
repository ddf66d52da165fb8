package ics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
)

const sampleEvents = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//one//EN\r\n" +
	"PRODID:-//two//EN\r\n" +
	"BEGIN:VTIMEZONE\r\n" +
	"TZID:Custom\r\n" +
	"TZUNTIL:20300101T000000Z\r\n" +
	"END:VTIMEZONE\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:trip\r\n" +
	"SUMMARY:Trip\r\n" +
	"DTSTART;VALUE=DATE:20240401\r\n" +
	"DTEND;VALUE=DATE:20240403\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"SUMMARY:Standup\r\n" +
	"DTSTART:20240401T090000Z\r\n" +
	"DTEND:20240401T091500Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"EXDATE:20240402T090000Z,20240403T090000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:conf\r\n" +
	"SUMMARY:Conference\r\n" +
	"DTSTART:20240510T100000Z\r\n" +
	"DTEND:20240512T120000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:nostart\r\n" +
	"SUMMARY:Floating\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const sampleTodos = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//todo//EN\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:a\r\nSUMMARY:Urgent\r\nPRIORITY:1\r\nDUE;VALUE=DATE:20240301\r\n" +
	"END:VTODO\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:b\r\nSUMMARY:Later\r\nPRIORITY:9\r\n" +
	"END:VTODO\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:c\r\nSUMMARY:Finished\r\nPRIORITY:1\r\nSTATUS:COMPLETED\r\n" +
	"END:VTODO\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:d\r\nSUMMARY:Dropped\r\nSTATUS:CANCELLED\r\n" +
	"END:VTODO\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:e\r\nSUMMARY:Plain\r\nPRIORITY:5\r\n" +
	"END:VTODO\r\n" +
	"END:VCALENDAR\r\n"

func newParser() *Parser {
	return NewParser(calendar.Gregorian{}, time.UTC, appLog.Nop())
}

func TestSanitize(t *testing.T) {
	out := string(Sanitize([]byte(sampleEvents)))
	assert.Equal(t, 1, strings.Count(out, "PRODID"))
	assert.Contains(t, out, "PRODID:-//one//EN")
	assert.NotContains(t, out, "TZUNTIL")
	assert.Contains(t, out, "TZID:Custom\r\n")
}

func TestParseEvents(t *testing.T) {
	events, err := newParser().ParseEvents(3, Document{Name: "sample", Body: Sanitize([]byte(sampleEvents))})
	require.NoError(t, err)
	require.Len(t, events, 4)

	trip := events[0]
	assert.Equal(t, "Trip", trip.Name)
	assert.Equal(t, model.NewDate(2024, 4, 1), trip.Date)
	assert.Equal(t, model.Daily, trip.Frequency)
	assert.Equal(t, 2, trip.Repetition)
	assert.True(t, trip.AllDay())
	assert.Equal(t, model.CalendarOrigin{Source: 3}, trip.Origin)

	standup := events[1]
	assert.Equal(t, 0, standup.Repetition)
	assert.Equal(t, "FREQ=DAILY;COUNT=5", standup.RRule)
	assert.Equal(t, []string{"20240402T090000Z", "20240403T090000Z"}, standup.ExDates)
	require.NotNil(t, standup.Start)
	assert.Equal(t, model.Clock{Hour: 9, Minute: 0}, *standup.Start)
	assert.Equal(t, model.Clock{Hour: 9, Minute: 15}, *standup.End)

	conf := events[2]
	assert.Equal(t, model.Daily, conf.Frequency)
	assert.Equal(t, 3, conf.Repetition)

	assert.True(t, events[3].Date.IsZero())
}

func TestParseEventsDisplayZone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:x\r\nBEGIN:VEVENT\r\nUID:late\r\nSUMMARY:Late\r\n" +
		"DTSTART:20240401T200000Z\r\nDTEND:20240401T210000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

	events, err := NewParser(calendar.Gregorian{}, loc, appLog.Nop()).ParseEvents(0, Document{Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.NewDate(2024, 4, 2), events[0].Date)
	assert.Equal(t, 5, events[0].Start.Hour)
	assert.Equal(t, 1, events[0].Repetition)
}

func TestParseTasks(t *testing.T) {
	tasks, err := newParser().ParseTasks(1, Document{Body: []byte(sampleTodos)})
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	assert.Equal(t, "Urgent", tasks[0].Name)
	assert.Equal(t, model.StatusImportant, tasks[0].Status)
	assert.Equal(t, model.NewDate(2024, 3, 1), tasks[0].Date)

	assert.Equal(t, model.StatusUnimportant, tasks[1].Status)
	assert.True(t, tasks[1].Date.IsZero())

	assert.Equal(t, model.StatusDone, tasks[2].Status)
	assert.Equal(t, model.StatusNormal, tasks[3].Status)
}

func TestParseEmptyBody(t *testing.T) {
	_, err := newParser().ParseEvents(0, Document{})
	assert.Error(t, err)
}

func TestResolveDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ics"), []byte(sampleTodos), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "a.ICS"), []byte(sampleEvents), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	r := NewResolver(nil, appLog.Nop())
	docs, err := r.Resolve(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(dir, "b.ics"), docs[0].Name)
	assert.Equal(t, 1, strings.Count(string(docs[1].Body), "PRODID"))

	single, err := r.Resolve(context.Background(), filepath.Join(dir, "b.ics"))
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = r.Resolve(context.Background(), filepath.Join(dir, "missing.ics"))
	assert.Error(t, err)
}

func TestFetcherCachesAndFallsBack(t *testing.T) {
	var hits, fail atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleTodos))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), appLog.Nop())
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, sampleTodos, string(first.Body))

	second, err := f.Fetch(ctx, srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, sampleTodos, string(second.Body))

	fail.Store(1)
	third, err := f.Fetch(ctx, srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.True(t, third.FromCache)

	_, err = f.Fetch(ctx, srv.URL+"/other.ics")
	assert.Error(t, err)
	assert.Equal(t, int32(4), hits.Load())

	docs, err := NewResolver(f, appLog.Nop()).Resolve(ctx, srv.URL+"/cal.ics")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0].Name, "cal.ics")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

func TestExportRoundTrip(t *testing.T) {
	trip := model.NewEvent(5, "Trip", model.NewDate(2024, 3, 1))
	trip.Repetition, trip.Frequency = 3, model.Daily

	call := model.NewEvent(6, "Call", model.NewDate(2024, 3, 2))
	call.Start = &model.Clock{Hour: 9, Minute: 30}
	call.End = &model.Clock{Hour: 10, Minute: 0}

	imported := model.NewEvent(7, "Feed", model.NewDate(2024, 3, 3))
	imported.Origin = model.CalendarOrigin{Source: 0}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []*model.Event{trip, call, imported}, calendar.Gregorian{}, time.UTC))
	assert.Contains(t, buf.String(), "RRULE:FREQ=DAILY;COUNT=3")
	assert.NotContains(t, buf.String(), "Feed")

	events, err := newParser().ParseEvents(0, Document{Body: buf.Bytes()})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Trip", events[0].Name)
	assert.Equal(t, model.NewDate(2024, 3, 1), events[0].Date)
	assert.True(t, events[0].AllDay())
	assert.Equal(t, "FREQ=DAILY;COUNT=3", events[0].RRule)

	assert.Equal(t, model.Clock{Hour: 9, Minute: 30}, *events[1].Start)
	assert.Equal(t, model.Clock{Hour: 10, Minute: 0}, *events[1].End)
}

func TestRRuleFor(t *testing.T) {
	ev := model.NewEvent(1, "x", model.NewDate(2024, 1, 1))
	assert.Equal(t, "", RRuleFor(ev))

	ev.Repetition, ev.Frequency = 4, model.Weekly
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", RRuleFor(ev))

	ev.Repetition, ev.RRule = 0, "RRULE:FREQ=YEARLY"
	assert.Equal(t, "FREQ=YEARLY", RRuleFor(ev))
}
