package calendar

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentCOBWeekdays(t *testing.T) {
	c := New()
	// 2026-08-31 is a Monday.
	monday := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	if got := c.CurrentCOB(monday); !got.Equal(day(2026, 8, 31)) {
		t.Errorf("Monday COB: %v", got)
	}
	// Saturday and Sunday roll back to Friday the 28th.
	for _, d := range []int{29, 30} {
		weekend := time.Date(2026, 8, d, 10, 0, 0, 0, time.UTC)
		if got := c.CurrentCOB(weekend); !got.Equal(day(2026, 8, 28)) {
			t.Errorf("weekend %d COB: %v", d, got)
		}
	}
}

func TestPrevCOBSkipsWeekend(t *testing.T) {
	c := New()
	monday := day(2026, 8, 31)
	if got := c.PrevCOB(monday); !got.Equal(day(2026, 8, 28)) {
		t.Errorf("prev COB from Monday: %v, want Friday 28th", got)
	}
	tuesday := day(2026, 9, 1)
	if got := c.PrevCOB(tuesday); !got.Equal(day(2026, 8, 31)) {
		t.Errorf("prev COB from Tuesday: %v", got)
	}
}

func TestNextCOBSkipsWeekend(t *testing.T) {
	c := New()
	friday := day(2026, 8, 28)
	if got := c.NextCOB(friday); !got.Equal(day(2026, 8, 31)) {
		t.Errorf("next COB from Friday: %v, want Monday 31st", got)
	}
}

func TestHolidaysSkipped(t *testing.T) {
	// Treat Monday the 31st as a holiday.
	c := New(day(2026, 8, 31))

	holiday := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)
	if got := c.CurrentCOB(holiday); !got.Equal(day(2026, 8, 28)) {
		t.Errorf("holiday COB: %v, want prior Friday", got)
	}
	if got := c.PrevCOB(day(2026, 9, 1)); !got.Equal(day(2026, 8, 28)) {
		t.Errorf("prev COB across holiday: %v", got)
	}
	if got := c.NextCOB(day(2026, 8, 28)); !got.Equal(day(2026, 9, 1)) {
		t.Errorf("next COB across holiday: %v", got)
	}
}

func TestZeroCalendarSkipsWeekendsOnly(t *testing.T) {
	var c *Calendar
	if !c.IsBusinessDay(day(2026, 8, 31)) {
		t.Error("nil calendar should treat Monday as business day")
	}
	if c.IsBusinessDay(day(2026, 8, 30)) {
		t.Error("nil calendar should skip Sunday")
	}
}

func TestMidnightNormalizesZone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 8, 31, 23, 30, 0, 0, est)
	got := Midnight(ts)
	if !got.Equal(day(2026, 8, 31)) {
		t.Errorf("Midnight: %v", got)
	}
}
