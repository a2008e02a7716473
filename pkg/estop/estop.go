package estop

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

const pollInterval = 200 * time.Millisecond

type pin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
	String() string
}

var lookupPin = func(name string) (pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise GPIO host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %q", name)
	}
	return p, nil
}

// Watch waits for the emergency stop button on pinName, which is pulled up and
// shorted to ground by the button, and calls onPress once when it is pressed.
// It returns when the button fires or ctx is done.
func Watch(ctx context.Context, pinName string, onPress func()) error {
	p, err := lookupPin(pinName)
	if err != nil {
		return err
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("failed to configure %s as input: %w", p, err)
	}
	fmt.Println("Watching emergency stop button on", p)

	for ctx.Err() == nil {
		if !p.WaitForEdge(pollInterval) {
			continue
		}
		// Ignore bounce on release.
		if p.Read() != gpio.Low {
			continue
		}
		fmt.Println("Emergency stop pressed")
		onPress()
		return nil
	}
	return ctx.Err()
}
