package csvstore

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"termcal/internal/model"
)

// LoadEvents reads the event file at path. A missing file is created and
// yields no events.
func (s *Store) LoadEvents(path string) ([]*model.Event, error) {
	data, err := s.open(path)
	if err != nil {
		return nil, err
	}
	events := s.ReadEvents(bytes.NewReader(data))
	s.logger.Info("events loaded", "path", path, "count", len(events))
	return events, nil
}

// ReadEvents decodes event rows. A repeated id is replaced by a fresh one
// so ids stay unique.
func (s *Store) ReadEvents(r io.Reader) []*model.Event {
	var events []*model.Event
	seen := make(map[int]bool)
	max := 0

	recs := rows(r, func(line int, err error) {
		s.logger.Error("event row skipped", err, "line", line)
	})
	for i, rec := range recs {
		ev, err := s.decodeEvent(rec)
		if err != nil {
			s.logger.Error("event row skipped", err, "row", i+1)
			continue
		}
		events = append(events, ev)
		if ev.ID > max {
			max = ev.ID
		}
	}
	for _, ev := range events {
		if ev.ID <= 0 || seen[ev.ID] {
			max++
			s.logger.Warn("event id reassigned", "old", ev.ID, "new", max, "name", ev.Name)
			ev.ID = max
		}
		seen[ev.ID] = true
	}
	return events
}

func (s *Store) decodeEvent(rec []string) (*model.Event, error) {
	if len(rec) < 5 {
		return nil, fmt.Errorf("want at least 5 columns, got %d", len(rec))
	}
	ints := make([]int, 4)
	for i, label := range []string{"id", "year", "month", "day"} {
		n, err := atoi(rec[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		ints[i] = n
	}

	name, private, _ := decodeName(rec[4])
	ev := model.NewEvent(ints[0], name, s.fromDisk(model.NewDate(ints[1], ints[2], ints[3])))
	ev.Private = private

	if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
		reps, err := atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("repetition: %w", err)
		}
		ev.Repetition = reps
	}
	if len(rec) > 6 {
		freq, ok := parseFrequency(rec[6])
		if !ok {
			s.logger.Warn("unknown event frequency, using once", "frequency", rec[6], "name", name)
		}
		ev.Frequency = freq
	}
	if len(rec) > 7 {
		status, ok := parseStatus(rec[7])
		if !ok {
			s.logger.Warn("unknown event status, using normal", "status", rec[7], "name", name)
		}
		ev.Status = status
	}
	if len(rec) > 8 {
		start, err := clock(rec, 8)
		if err != nil {
			return nil, fmt.Errorf("start time: %w", err)
		}
		end, err := clock(rec, 10)
		if err != nil {
			return nil, fmt.Errorf("end time: %w", err)
		}
		ev.Start, ev.End = start, end
		if ev.Start == nil {
			ev.End = nil
		}
	}
	return ev, nil
}

// clock reads an hour,minute pair at rec[i]. A missing or empty pair yields
// nil.
func clock(rec []string, i int) (*model.Clock, error) {
	if i+1 >= len(rec) || strings.TrimSpace(rec[i]) == "" || strings.TrimSpace(rec[i+1]) == "" {
		return nil, nil
	}
	h, err := atoi(rec[i])
	if err != nil {
		return nil, err
	}
	m, err := atoi(rec[i+1])
	if err != nil {
		return nil, err
	}
	c := &model.Clock{Hour: h, Minute: m}
	if !c.Valid() {
		return nil, fmt.Errorf("out of range %02d:%02d", h, m)
	}
	return c, nil
}

func clockFields(c *model.Clock) string {
	if c == nil {
		return ","
	}
	return strconv.Itoa(c.Hour) + "," + strconv.Itoa(c.Minute)
}

// WriteEvents encodes the locally owned events.
func (s *Store) WriteEvents(w io.Writer, events []*model.Event) error {
	for _, ev := range events {
		if !ev.Local() {
			continue
		}
		d := s.toDisk(ev.Date)
		line := fmt.Sprintf("%d,%d,%d,%d,%s,%d,%s,%s,%s,%s",
			ev.ID, d.Year, d.Month, d.Day,
			encodeName(ev.Name, ev.Private, false),
			ev.Repetition, frequencyToken(ev.Frequency), statusToken(ev.Status),
			clockFields(ev.Start), clockFields(ev.End))
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// SaveEvents atomically rewrites path and clears the dirty flag on success.
func (s *Store) SaveEvents(path string, events *model.Events) error {
	err := s.save(path, func(w io.Writer) error {
		return s.WriteEvents(w, events.Items())
	})
	if err != nil {
		return err
	}
	events.MarkSaved()
	return nil
}
