package engine

import (
	"time"
)

// =============================================================================
// DATE - Calendar date with day granularity
// =============================================================================

// Date is a calendar date anchored to UTC midnight. The engine deals in
// whole days only; callers hand it already-normalized dates so no local
// time zone can shift a due date across a day boundary.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf normalizes an arbitrary time.Time to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) IsZero() bool              { return d.t.IsZero() }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// AddMonths advances the date by n months, preserving the day of month
// and CLAMPING to the last valid day of the target month. Disbursing on
// January 31st therefore yields a February due date of the 28th (or 29th
// in a leap year), never a silent roll-over into March the way
// time.AddDate behaves.
func (d Date) AddMonths(n int) Date {
	year, month, day := d.t.Date()
	months := int(month) - 1 + n
	targetYear := year + months/12
	targetMonth := time.Month(months%12 + 1)
	if months < 0 {
		// floor division for going backwards
		targetYear = year + (months-11)/12
		targetMonth = time.Month((months%12+12)%12 + 1)
	}
	if last := daysInMonth(targetYear, targetMonth); day > last {
		day = last
	}
	return NewDate(targetYear, targetMonth, day)
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the whole days from 'from' to 'to' (negative when
// 'to' precedes 'from').
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func (d Date) String() string {
	return d.t.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
