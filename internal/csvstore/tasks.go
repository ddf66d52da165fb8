package csvstore

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"termcal/internal/model"
)

// LoadTasks reads the task file at path. A missing file is created and
// yields no tasks.
func (s *Store) LoadTasks(path string) ([]*model.Task, error) {
	data, err := s.open(path)
	if err != nil {
		return nil, err
	}
	tasks := s.ReadTasks(bytes.NewReader(data))
	s.logger.Info("tasks loaded", "path", path, "count", len(tasks))
	return tasks, nil
}

// ReadTasks decodes task rows, assigning ids from 1 in file order.
// Malformed rows are logged and skipped.
func (s *Store) ReadTasks(r io.Reader) []*model.Task {
	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.Error("tasks read failed", err)
		return nil
	}
	legacy := len(data) > 0 && data[0] == '"'

	var tasks []*model.Task
	recs := rows(bytes.NewReader(data), func(line int, err error) {
		s.logger.Error("task row skipped", err, "line", line)
	})
	for i, rec := range recs {
		task, err := s.decodeTask(rec, legacy)
		if err != nil {
			s.logger.Error("task row skipped", err, "row", i+1)
			continue
		}
		task.ID = len(tasks) + 1
		tasks = append(tasks, task)
	}
	return tasks
}

func (s *Store) decodeTask(rec []string, legacy bool) (*model.Task, error) {
	var date model.Date
	if !legacy {
		if len(rec) < 5 {
			return nil, fmt.Errorf("want at least 5 columns, got %d", len(rec))
		}
		y, err := atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("year: %w", err)
		}
		m, err := atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("month: %w", err)
		}
		d, err := atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("day: %w", err)
		}
		date = model.NewDate(y, m, d)
		rec = rec[3:]
	} else if len(rec) < 2 {
		return nil, fmt.Errorf("want at least 2 columns, got %d", len(rec))
	}

	name, private, subtask := decodeName(rec[0])
	status, ok := parseStatus(rec[1])
	if !ok {
		s.logger.Warn("unknown task status, using normal", "status", rec[1], "name", name)
	}

	task := model.NewTask(0, name)
	task.Private = private
	task.Subtask = subtask
	task.Status = status
	task.Date = s.fromDisk(date)

	for _, field := range rec[2:] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		stamp, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("timer stamp: %w", err)
		}
		task.Timer.Stamps = append(task.Timer.Stamps, stamp)
	}
	return task, nil
}

// WriteTasks encodes the locally owned tasks in current format.
func (s *Store) WriteTasks(w io.Writer, tasks []*model.Task) error {
	for _, t := range tasks {
		if !t.Local() {
			continue
		}
		d := s.toDisk(t.Date)
		line := fmt.Sprintf("%d,%d,%d,%s,%s", d.Year, d.Month, d.Day,
			encodeName(t.Name, t.Private, t.Subtask), statusToken(t.Status))
		for _, stamp := range t.Timer.Stamps {
			line += "," + strconv.FormatInt(stamp, 10)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// SaveTasks atomically rewrites path. The dirty flag is cleared only when
// the write succeeded.
func (s *Store) SaveTasks(path string, tasks *model.Tasks) error {
	err := s.save(path, func(w io.Writer) error {
		return s.WriteTasks(w, tasks.Items())
	})
	if err != nil {
		return err
	}
	tasks.MarkSaved()
	return nil
}
