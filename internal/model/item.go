// Package model holds the organizer's items and the ordered collections
// that own them. Nothing here performs I/O.
package model

import "fmt"

type Status int

const (
	StatusNormal Status = iota
	StatusImportant
	StatusUnimportant
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusImportant:
		return "important"
	case StatusUnimportant:
		return "unimportant"
	case StatusDone:
		return "done"
	default:
		return "normal"
	}
}

// Toggle returns target unless the status already equals it, in which case
// the status falls back to normal.
func (s Status) Toggle(target Status) Status {
	if s == target {
		return StatusNormal
	}
	return target
}

type Frequency int

const (
	Once Frequency = iota
	Daily
	Weekly
	Monthly
	Yearly
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "once"
	}
}

// Date is a calendar triple in the configured display calendar. Year 0
// means undated.
type Date struct {
	Year  int
	Month int
	Day   int
}

func NewDate(y, m, d int) Date { return Date{Year: y, Month: m, Day: d} }

// IsZero reports whether the date is the undated sentinel.
func (d Date) IsZero() bool { return d.Year == 0 }

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// SameMonth reports whether both dates share year and month.
func (d Date) SameMonth(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month
}

func (d Date) String() string {
	if d.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Origin classifies where an item came from. The concrete types are
// LocalOrigin, *RemoteOrigin and CalendarOrigin.
type Origin interface {
	isOrigin()
}

// LocalOrigin items are owned by the local data files.
type LocalOrigin struct{}

// StatusOption is one entry of a remote status property.
type StatusOption struct {
	ID   string
	Name string
}

// RemoteOrigin items mirror a page of the remote task database.
type RemoteOrigin struct {
	RemoteID      string
	StatusOptions []StatusOption
	CurrentStatus string
}

// CalendarOrigin items were imported from a read-only source. Source is the
// configured ICS resource index, or one of the negative Source* constants.
type CalendarOrigin struct {
	Source int
}

const (
	SourceHolidays  = -1
	SourceBirthdays = -2
)

func (LocalOrigin) isOrigin()    {}
func (*RemoteOrigin) isOrigin()  {}
func (CalendarOrigin) isOrigin() {}

// IsLocal reports whether o participates in local save.
func IsLocal(o Origin) bool {
	switch o.(type) {
	case nil, LocalOrigin:
		return true
	default:
		return false
	}
}

// Remote returns the remote origin of o, if any.
func Remote(o Origin) (*RemoteOrigin, bool) {
	r, ok := o.(*RemoteOrigin)
	return r, ok && r != nil
}

// HeaderID is the id carried by every header row.
const HeaderID = 0

// Item holds the fields shared by events and tasks.
type Item struct {
	ID      int
	Name    string
	Private bool
	Status  Status
	Date    Date
	Origin  Origin
	Header  bool
}

// Base lets generic collections reach the shared fields.
func (i *Item) Base() *Item { return i }

// Local reports whether the item is saved to the local files.
func (i *Item) Local() bool { return !i.Header && IsLocal(i.Origin) }
