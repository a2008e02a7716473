package link

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

// Dummy replays telemetry from a reader and prints the commands it is sent
// instead of driving any hardware.  The reader is drained by a background
// goroutine so that ReadLine returns on cancellation even while stdin is
// blocked.
type Dummy struct {
	lines   *lineReader
	start   sync.Once
	results chan string
	readErr error

	lock    sync.Mutex
	sent    []motion.Action
	SendErr error
	Quiet   bool
}

func NewDummy(r io.Reader) *Dummy {
	return &Dummy{lines: newLineReader(r)}
}

func (d *Dummy) String() string {
	return "dummy"
}

func (d *Dummy) ReadLine(ctx context.Context) (string, error) {
	d.start.Do(func() {
		d.results = make(chan string)
		go d.loopReadingLines()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-d.results:
		if !ok {
			return "", d.readErr
		}
		return line, nil
	}
}

func (d *Dummy) loopReadingLines() {
	for {
		line, err := d.lines.ReadLine(context.Background())
		if err != nil {
			d.readErr = err
			close(d.results)
			return
		}
		d.results <- line
	}
}

func (d *Dummy) Send(a motion.Action) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.SendErr != nil {
		return d.SendErr
	}
	if !d.Quiet {
		fmt.Printf("Dummy link sending %c (%v)\n", a.Command(), a)
	}
	d.sent = append(d.sent, a)
	return nil
}

// Sent returns every action successfully sent so far.
func (d *Dummy) Sent() []motion.Action {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]motion.Action(nil), d.sent...)
}

func (d *Dummy) Close() error {
	return nil
}
