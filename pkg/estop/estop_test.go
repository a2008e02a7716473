package estop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
)

type fakePin struct {
	pull  gpio.Pull
	edge  gpio.Edge
	edges []gpio.Level
	inErr error
	level gpio.Level
}

func (f *fakePin) In(pull gpio.Pull, edge gpio.Edge) error {
	f.pull, f.edge = pull, edge
	return f.inErr
}

func (f *fakePin) WaitForEdge(time.Duration) bool {
	if len(f.edges) == 0 {
		return false
	}
	f.level = f.edges[0]
	f.edges = f.edges[1:]
	return true
}

func (f *fakePin) Read() gpio.Level {
	return f.level
}

func (f *fakePin) String() string {
	return "GPIO-fake"
}

func withPin(t *testing.T, p pin, err error) {
	orig := lookupPin
	lookupPin = func(string) (pin, error) { return p, err }
	t.Cleanup(func() { lookupPin = orig })
}

func TestWatchFiresOnPress(t *testing.T) {
	fp := &fakePin{edges: []gpio.Level{gpio.High, gpio.Low}}
	withPin(t, fp, nil)

	pressed := 0
	require.NoError(t, Watch(context.Background(), "GPIO27", func() { pressed++ }))
	assert.Equal(t, 1, pressed)
	assert.Equal(t, gpio.PullUp, fp.pull)
	assert.Equal(t, gpio.FallingEdge, fp.edge)
}

func TestWatchStopsWithContext(t *testing.T) {
	withPin(t, &fakePin{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Watch(ctx, "GPIO27", func() { t.Fatal("unexpected press") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchReportsSetupErrors(t *testing.T) {
	withPin(t, nil, errors.New("no GPIO pin"))
	assert.Error(t, Watch(context.Background(), "nope", func() {}))

	withPin(t, &fakePin{inErr: errors.New("busy")}, nil)
	assert.Error(t, Watch(context.Background(), "GPIO27", func() {}))
}
