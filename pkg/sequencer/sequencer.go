package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

// CommandChannel is the outbound link to the microcontroller.
type CommandChannel interface {
	Send(a motion.Action) error
}

// Clock abstracts waiting so that plans can be executed without real time
// passing in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Sequencer executes plans against a CommandChannel.  It is the only writer to
// the channel and is not safe for concurrent use.
type Sequencer struct {
	ch    CommandChannel
	clock Clock
}

type Option func(*Sequencer)

func WithClock(c Clock) Option {
	return func(s *Sequencer) {
		s.clock = c
	}
}

func New(ch CommandChannel, opts ...Option) *Sequencer {
	s := &Sequencer{
		ch:    ch,
		clock: RealClock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Execute sends each step's action once, in order, holding it for the step's
// duration before moving on.  If a send fails the rest of the plan is
// abandoned and the error returned.  If ctx is cancelled the plan is abandoned
// and a Stop is sent before returning ctx.Err().
func (s *Sequencer) Execute(ctx context.Context, plan motion.Plan) error {
	for i, step := range plan {
		if ctx.Err() != nil {
			return s.abandon(ctx)
		}
		if err := s.ch.Send(step.Action); err != nil {
			return fmt.Errorf("step %d (%v): %w", i, step.Action, err)
		}
		if step.Hold <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return s.abandon(ctx)
		case <-s.clock.After(step.Hold):
		}
	}
	return nil
}

func (s *Sequencer) abandon(ctx context.Context) error {
	if err := s.SafeStop(); err != nil {
		fmt.Println("SEQ: Failed to send stop after cancellation:", err)
	}
	return ctx.Err()
}

// SafeStop sends Stop regardless of what is in progress.
func (s *Sequencer) SafeStop() error {
	return s.ch.Send(motion.Stop)
}
