package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

type recorder struct {
	sent   []motion.Action
	failAt int
	err    error
}

func (r *recorder) Send(a motion.Action) error {
	if r.err != nil && len(r.sent) == r.failAt {
		return r.err
	}
	r.sent = append(r.sent, a)
	return nil
}

const ms = time.Millisecond

var closePlan = motion.Plan{
	{Action: motion.Stop, Hold: 50 * ms},
	{Action: motion.Backward, Hold: 300 * ms},
	{Action: motion.Stop, Hold: 50 * ms},
	{Action: motion.TurnLeft, Hold: 350 * ms},
	{Action: motion.Stop, Hold: 50 * ms},
}

func TestExecuteSendsEachStepOnceInOrder(t *testing.T) {
	rec := &recorder{}
	clock := &FakeClock{}
	s := New(rec, WithClock(clock))

	require.NoError(t, s.Execute(context.Background(), closePlan))

	assert.Equal(t, []motion.Action{motion.Stop, motion.Backward, motion.Stop, motion.TurnLeft, motion.Stop}, rec.sent)
	assert.Equal(t, []time.Duration{50 * ms, 300 * ms, 50 * ms, 350 * ms, 50 * ms}, clock.Waits())
	assert.Equal(t, closePlan.Duration(), clock.Total())
}

func TestZeroHoldDoesNotWait(t *testing.T) {
	rec := &recorder{}
	clock := &FakeClock{}
	s := New(rec, WithClock(clock))

	plan := motion.Plan{{Action: motion.TurnRight, Hold: 120 * ms}, {Action: motion.Forward}}
	require.NoError(t, s.Execute(context.Background(), plan))

	assert.Equal(t, []motion.Action{motion.TurnRight, motion.Forward}, rec.sent)
	assert.Equal(t, []time.Duration{120 * ms}, clock.Waits())
}

func TestSendFailureAbandonsRest(t *testing.T) {
	boom := errors.New("port gone")
	rec := &recorder{failAt: 2, err: boom}
	clock := &FakeClock{}
	s := New(rec, WithClock(clock))

	err := s.Execute(context.Background(), closePlan)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []motion.Action{motion.Stop, motion.Backward}, rec.sent)
	assert.Len(t, clock.Waits(), 2)
}

func TestCancellationDuringHoldSendsStop(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	clock := &FakeClock{OnAfter: func(d time.Duration) bool {
		if d == 300*ms {
			cancel()
			return true
		}
		return false
	}}
	s := New(rec, WithClock(clock))

	err := s.Execute(ctx, closePlan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []motion.Action{motion.Stop, motion.Backward, motion.Stop}, rec.sent)
}

func TestCancelledBeforeStartOnlyStops(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(rec, WithClock(&FakeClock{}))

	err := s.Execute(ctx, closePlan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []motion.Action{motion.Stop}, rec.sent)
}

func TestRealClockHolds(t *testing.T) {
	rec := &recorder{}
	s := New(rec)
	start := time.Now()
	require.NoError(t, s.Execute(context.Background(), motion.Plan{{Action: motion.Forward, Hold: 20 * ms}}))
	assert.GreaterOrEqual(t, time.Since(start), 20*ms)
}

func TestSafeStop(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, New(rec).SafeStop())
	assert.Equal(t, []motion.Action{motion.Stop}, rec.sent)
}
