// Package csvstore reads and writes the local task and event files.
//
// Task rows:  year,month,day,"[.]name",status[,stamp]...
// Event rows: id,year,month,day,"[.]name",repetition,frequency,status[,sh,sm,eh,em]
//
// Dates are stored Gregorian and converted to the display calendar on load.
package csvstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"termcal/internal/calendar"
	appLog "termcal/internal/log"
	"termcal/internal/model"
	"termcal/internal/safefile"
)

const (
	privateMarker = "."
	subtaskMarker = "--"
)

// Store converts between the files and model items.
type Store struct {
	sys    calendar.System
	logger *appLog.Logger
}

func New(sys calendar.System, logger *appLog.Logger) *Store {
	if sys == nil {
		sys = calendar.Gregorian{}
	}
	return &Store{sys: sys, logger: logger.With("component", "csvstore")}
}

// open returns the file content, creating an empty file when missing.
func (s *Store) open(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csvstore: read %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("csvstore: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return nil, fmt.Errorf("csvstore: create %s: %w", path, err)
	}
	s.logger.Info("data file created", "path", path)
	return nil, nil
}

// rows splits r into records, one per non-empty line. Lines that do not
// parse as CSV are reported through bad and skipped.
func rows(r io.Reader, bad func(line int, err error)) [][]string {
	var out [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cr := csv.NewReader(strings.NewReader(line))
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		rec, err := cr.Read()
		if err != nil {
			bad(n, err)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		bad(n+1, err)
	}
	return out
}

// decodeName strips the privacy and subtask markers.
func decodeName(raw string) (name string, private, subtask bool) {
	name = raw
	if strings.HasPrefix(name, privateMarker) {
		private = true
		name = name[len(privateMarker):]
	}
	if strings.HasPrefix(name, subtaskMarker) {
		subtask = true
		name = name[len(subtaskMarker):]
	}
	return name, private, subtask
}

func encodeName(name string, private, subtask bool) string {
	var b strings.Builder
	b.WriteByte('"')
	if private {
		b.WriteString(privateMarker)
	}
	if subtask {
		b.WriteString(subtaskMarker)
	}
	b.WriteString(strings.ReplaceAll(name, `"`, `""`))
	b.WriteByte('"')
	return b.String()
}

func parseStatus(tok string) (model.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "", "normal":
		return model.StatusNormal, true
	case "important":
		return model.StatusImportant, true
	case "unimportant":
		return model.StatusUnimportant, true
	case "done":
		return model.StatusDone, true
	default:
		return model.StatusNormal, false
	}
}

func statusToken(s model.Status) string {
	switch s {
	case model.StatusImportant:
		return "important"
	case model.StatusUnimportant:
		return "unimportant"
	case model.StatusDone:
		return "done"
	default:
		return "normal"
	}
}

func parseFrequency(tok string) (model.Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "", "once", "n":
		return model.Once, true
	case "daily", "d":
		return model.Daily, true
	case "weekly", "w":
		return model.Weekly, true
	case "monthly", "m":
		return model.Monthly, true
	case "yearly", "y":
		return model.Yearly, true
	default:
		return model.Once, false
	}
}

func frequencyToken(f model.Frequency) string {
	switch f {
	case model.Daily:
		return "daily"
	case model.Weekly:
		return "weekly"
	case model.Monthly:
		return "monthly"
	case model.Yearly:
		return "yearly"
	default:
		return "once"
	}
}

func atoi(field string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(field))
}

// fromDisk converts a stored Gregorian date to the display calendar.
func (s *Store) fromDisk(d model.Date) model.Date {
	if d.IsZero() {
		return d
	}
	return s.sys.FromGregorian(d)
}

func (s *Store) toDisk(d model.Date) model.Date {
	if d.IsZero() {
		return d
	}
	return s.sys.ToGregorian(d)
}

func (s *Store) save(path string, write func(w io.Writer) error) error {
	var b strings.Builder
	if err := write(&b); err != nil {
		return err
	}
	if err := safefile.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		s.logger.Error("save failed", err, "path", path)
		return fmt.Errorf("csvstore: save %s: %w", path, err)
	}
	return nil
}
