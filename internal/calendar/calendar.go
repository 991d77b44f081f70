// Package calendar provides business-date arithmetic for close-of-
// business accounting. Dates are calendar days at midnight UTC;
// weekends and configured holidays are skipped.
package calendar

import "time"

// Calendar knows which days are business days. The zero value skips
// weekends only.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a calendar with the given holiday dates.
func New(holidays ...time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[dayKey(h)] = struct{}{}
	}
	return c
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Midnight truncates t to its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on a business day.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if c == nil || c.holidays == nil {
		return true
	}
	_, holiday := c.holidays[dayKey(t)]
	return !holiday
}

// CurrentCOB returns the close-of-business date for t: t's own day if
// it is a business day, otherwise the most recent business day before
// it.
func (c *Calendar) CurrentCOB(t time.Time) time.Time {
	d := Midnight(t)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// PrevCOB returns the last business day strictly before t's COB date.
func (c *Calendar) PrevCOB(t time.Time) time.Time {
	d := c.CurrentCOB(t).AddDate(0, 0, -1)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextCOB returns the first business day strictly after t's COB date.
func (c *Calendar) NextCOB(t time.Time) time.Time {
	d := c.CurrentCOB(t).AddDate(0, 0, 1)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
