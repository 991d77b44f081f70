// Package publish fans conflated binary frames out to WebSocket clients
// and mirrors portfolio P&L into Redis for other processes.
package publish

import "context"

// Conflator is a single-slot latest-wins queue. A slow consumer never
// sees a backlog: each Take returns the newest frame offered since the
// previous Take, and everything older is dropped.
type Conflator struct {
	slot    chan []byte
	dropped func()
}

// NewConflator creates a conflator. onDrop, if non-nil, is called once
// per frame displaced before it was consumed.
func NewConflator(onDrop func()) *Conflator {
	return &Conflator{slot: make(chan []byte, 1), dropped: onDrop}
}

// Offer replaces any pending frame with this one. Never blocks.
func (c *Conflator) Offer(frame []byte) {
	for {
		select {
		case c.slot <- frame:
			return
		default:
		}
		select {
		case <-c.slot:
			if c.dropped != nil {
				c.dropped()
			}
		default:
		}
	}
}

// Take blocks until a frame is available or ctx is done.
func (c *Conflator) Take(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.slot:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryTake returns the pending frame, if any, without blocking.
func (c *Conflator) TryTake() ([]byte, bool) {
	select {
	case frame := <-c.slot:
		return frame, true
	default:
		return nil, false
	}
}
