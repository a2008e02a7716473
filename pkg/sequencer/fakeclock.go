package sequencer

import (
	"sync"
	"time"
)

// FakeClock fires every wait immediately and remembers what was asked for.
// If OnAfter is set and returns true, that wait never fires.
type FakeClock struct {
	lock    sync.Mutex
	waits   []time.Duration
	OnAfter func(d time.Duration) (block bool)
}

var _ Clock = (*FakeClock)(nil)

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	block := false
	if c.OnAfter != nil {
		block = c.OnAfter(d)
	}
	c.lock.Lock()
	c.waits = append(c.waits, d)
	c.lock.Unlock()

	ch := make(chan time.Time, 1)
	if !block {
		ch <- time.Time{}
	}
	return ch
}

func (c *FakeClock) Waits() []time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// Total is the sum of all waits so far.
func (c *FakeClock) Total() (d time.Duration) {
	for _, w := range c.Waits() {
		d += w
	}
	return
}
