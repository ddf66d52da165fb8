package model

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Valid reports whether the clock is within 00:00..23:59.
func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// Event is a dated item that may repeat. A nil Start means all-day.
type Event struct {
	Item

	// Repetition is the number of occurrences; 0 means the carried RRule
	// governs membership.
	Repetition int
	Frequency  Frequency

	Start *Clock
	End   *Clock

	// RRule and ExDates are carried verbatim from imported calendars.
	RRule   string
	ExDates []string
}

// NewEvent returns a local, single-occurrence event.
func NewEvent(id int, name string, date Date) *Event {
	return &Event{
		Item: Item{
			ID:     id,
			Name:   name,
			Date:   date,
			Origin: LocalOrigin{},
		},
		Repetition: 1,
		Frequency:  Once,
	}
}

// AllDay reports whether the event has no time of day.
func (e *Event) AllDay() bool { return e.Start == nil }
