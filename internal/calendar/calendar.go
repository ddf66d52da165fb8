// Package calendar implements date arithmetic for the display calendars.
// Dates are plain model.Date triples; every system agrees on a day number
// so values convert through it.
package calendar

import (
	"fmt"
	"time"

	"termcal/internal/model"
)

// System is a calendar in which dates are displayed and edited.
type System interface {
	Name() string
	DaysIn(year, month int) int
	Valid(d model.Date) bool

	// AddDays moves d by n days.
	AddDays(d model.Date, n int) model.Date
	// AddMonths moves d by n months. A day past the end of the target month
	// rolls into the following month.
	AddMonths(d model.Date, n int) model.Date

	ToGregorian(d model.Date) model.Date
	FromGregorian(d model.Date) model.Date

	// DayNumber is a continuous day count shared by all systems.
	DayNumber(d model.Date) int
	FromDayNumber(n int) model.Date
}

// Named returns the system registered under name: "gregorian" or "persian".
func Named(name string) (System, error) {
	switch name {
	case "", "gregorian":
		return Gregorian{}, nil
	case "persian", "jalali":
		return Persian{}, nil
	default:
		return nil, fmt.Errorf("calendar: unknown system %q", name)
	}
}

// Today returns now's date in sys.
func Today(sys System, now time.Time) model.Date {
	return sys.FromGregorian(model.NewDate(now.Year(), int(now.Month()), now.Day()))
}

// DaysBetween returns b minus a in days.
func DaysBetween(sys System, a, b model.Date) int {
	return sys.DayNumber(b) - sys.DayNumber(a)
}

// Weekday returns the day of the week of d.
func Weekday(sys System, d model.Date) time.Weekday {
	g := sys.ToGregorian(d)
	return time.Date(g.Year, time.Month(g.Month), g.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// Time returns midnight of d in loc, using the Gregorian projection.
func Time(sys System, d model.Date, loc *time.Location) time.Time {
	g := sys.ToGregorian(d)
	return time.Date(g.Year, time.Month(g.Month), g.Day, 0, 0, 0, 0, loc)
}

// Gregorian is the proleptic Gregorian calendar.
type Gregorian struct{}

func (Gregorian) Name() string { return "gregorian" }

func (Gregorian) DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (g Gregorian) Valid(d model.Date) bool {
	if d.Year <= 0 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	return d.Day <= g.DaysIn(d.Year, d.Month)
}

func (Gregorian) AddDays(d model.Date, n int) model.Date {
	return fromTime(toTime(d).AddDate(0, 0, n))
}

func (Gregorian) AddMonths(d model.Date, n int) model.Date {
	return fromTime(toTime(d).AddDate(0, n, 0))
}

func (Gregorian) ToGregorian(d model.Date) model.Date   { return d }
func (Gregorian) FromGregorian(d model.Date) model.Date { return d }

func (Gregorian) DayNumber(d model.Date) int { return g2d(d.Year, d.Month, d.Day) }

func (Gregorian) FromDayNumber(n int) model.Date {
	y, m, d := d2g(n)
	return model.NewDate(y, m, d)
}

func toTime(d model.Date) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC)
}

func fromTime(t time.Time) model.Date {
	return model.NewDate(t.Year(), int(t.Month()), t.Day())
}

// g2d converts a Gregorian date to a Julian day number.
func g2d(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 +
		(153*((gm+9)%12)+2)/5 +
		gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

// d2g converts a Julian day number to a Gregorian date.
func d2g(jdn int) (int, int, int) {
	j := 4*jdn + 139361631
	j = j + (4*jdn+183187720)/146097*3/4*4 - 3908
	i := (j%1461)/4*5 + 308
	gd := (i%153)/5 + 1
	gm := (i/153)%12 + 1
	gy := j/1461 - 100100 + (8-gm)/6
	return gy, gm, gd
}
