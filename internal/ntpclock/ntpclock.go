// Package ntpclock provides a wall clock corrected by a one-shot NTP
// offset query. Timer cadence and broadcast timestamps all read this
// clock so the stream lines up with exchange time even on hosts with
// a drifting local clock.
package ntpclock

import (
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

// Clock is a wall clock with a fixed offset. The zero value reads
// plain local time.
type Clock struct {
	offset time.Duration
}

// New queries the NTP server once and captures the clock offset. On
// any failure it logs a warning and falls back to the local clock;
// time correction is best-effort, never fatal.
func New(server string, log *slog.Logger) *Clock {
	resp, err := ntp.Query(server)
	if err != nil {
		log.Warn("ntp query failed, using local clock", "server", server, "err", err)
		return &Clock{}
	}
	if err := resp.Validate(); err != nil {
		log.Warn("ntp response invalid, using local clock", "server", server, "err", err)
		return &Clock{}
	}
	log.Info("ntp offset applied", "server", server, "offset", resp.ClockOffset)
	return &Clock{offset: resp.ClockOffset}
}

// NewFixed returns a clock with an explicit offset. Used by tests.
func NewFixed(offset time.Duration) *Clock {
	return &Clock{offset: offset}
}

// Now returns the corrected current time.
func (c *Clock) Now() time.Time {
	return time.Now().Add(c.offset)
}

// NowNS returns the corrected time as Unix nanoseconds.
func (c *Clock) NowNS() int64 {
	return c.Now().UnixNano()
}

// Offset reports the correction being applied.
func (c *Clock) Offset() time.Duration {
	return c.offset
}
