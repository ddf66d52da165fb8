package calendar

import "termcal/internal/model"

// Persian is the solar Hijri (Jalali) calendar, computed with the 33-year
// break table used by the jalaali algorithms. Years outside the table are
// reported invalid.
type Persian struct{}

var jalaliBreaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

func (Persian) Name() string { return "persian" }

func (Persian) DaysIn(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsPersianLeap(year):
		return 30
	default:
		return 29
	}
}

func (p Persian) Valid(d model.Date) bool {
	if d.Year < jalaliBreaks[0] || d.Year >= jalaliBreaks[len(jalaliBreaks)-1] {
		return false
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	return d.Day <= p.DaysIn(d.Year, d.Month)
}

func (p Persian) AddDays(d model.Date, n int) model.Date {
	return p.FromDayNumber(p.DayNumber(d) + n)
}

func (p Persian) AddMonths(d model.Date, n int) model.Date {
	total := d.Year*12 + (d.Month - 1) + n
	y, m := total/12, total%12
	if m < 0 {
		m += 12
		y--
	}
	first := model.NewDate(y, m+1, 1)
	return p.FromDayNumber(p.DayNumber(first) + d.Day - 1)
}

func (p Persian) ToGregorian(d model.Date) model.Date {
	y, m, dd := d2g(p.DayNumber(d))
	return model.NewDate(y, m, dd)
}

func (p Persian) FromGregorian(d model.Date) model.Date {
	return p.FromDayNumber(g2d(d.Year, d.Month, d.Day))
}

func (Persian) DayNumber(d model.Date) int {
	_, gy, march := jalCal(d.Year)
	return g2d(gy, 3, march) + (d.Month-1)*31 - d.Month/7*(d.Month-7) + d.Day - 1
}

func (Persian) FromDayNumber(jdn int) model.Date {
	gy, _, _ := d2g(jdn)
	jy := gy - 621
	leap, _, march := jalCal(jy)
	k := jdn - g2d(gy, 3, march)
	if k >= 0 {
		if k <= 185 {
			return model.NewDate(jy, 1+k/31, k%31+1)
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return model.NewDate(jy, 7+k/30, k%30+1)
}

// IsPersianLeap reports whether jy has 366 days.
func IsPersianLeap(jy int) bool {
	leap, _, _ := jalCal(jy)
	return leap == 0
}

// jalCal returns the position of jy in its leap cycle (0 means leap), the
// Gregorian year in which jy begins, and the March day of Farvardin 1.
func jalCal(jy int) (leap, gy, march int) {
	gy = jy + 621
	leapJ := -14
	jp := jalaliBreaks[0]
	jump := 0
	for i := 1; i < len(jalaliBreaks); i++ {
		jm := jalaliBreaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return leap, gy, march
}
