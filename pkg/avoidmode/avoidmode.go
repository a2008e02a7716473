package avoidmode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/sequencer"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

// Link is the two-way connection to the microcontroller.
type Link interface {
	ReadLine(ctx context.Context) (string, error)
	sequencer.CommandChannel
}

// Observer is told about every plan before it is executed.  Observers must
// not block.
type Observer interface {
	OnDecision(r telemetry.Reading, d policy.Decision)
}

// SkipObserver is optionally implemented by observers that want to hear about
// lines that produced no plan.
type SkipObserver interface {
	OnSkipped(line string, err error)
}

// ErrorObserver is optionally implemented by observers that want to hear
// about link failures.
type ErrorObserver interface {
	OnTransportError(op string, err error)
}

type AvoidMode struct {
	link       Link
	engine     *policy.Engine
	seq        *sequencer.Sequencer
	clock      sequencer.Clock
	errorPause time.Duration
	observers  []Observer
}

type Option func(*AvoidMode)

func WithClock(c sequencer.Clock) Option {
	return func(m *AvoidMode) {
		m.clock = c
	}
}

func WithObserver(o Observer) Option {
	return func(m *AvoidMode) {
		m.observers = append(m.observers, o)
	}
}

func WithErrorPause(d time.Duration) Option {
	return func(m *AvoidMode) {
		m.errorPause = d
	}
}

func New(link Link, engine *policy.Engine, opts ...Option) *AvoidMode {
	m := &AvoidMode{
		link:       link,
		engine:     engine,
		errorPause: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(m)
	}
	var seqOpts []sequencer.Option
	if m.clock != nil {
		seqOpts = append(seqOpts, sequencer.WithClock(m.clock))
	} else {
		m.clock = sequencer.RealClock{}
	}
	m.seq = sequencer.New(link, seqOpts...)
	return m
}

func (m *AvoidMode) Name() string {
	return "Avoid mode"
}

// Run processes one telemetry line at a time until ctx is cancelled or the
// telemetry stream ends.  Each plan is executed in full before the next line
// is read.  Link failures are logged and retried after a pause; the robot is
// always sent a final Stop on the way out.
func (m *AvoidMode) Run(ctx context.Context) error {
	fmt.Printf("----- %s -----\n", m.Name())
	stopped := false
	defer func() {
		if stopped {
			return
		}
		fmt.Println("AVOID: Stopping motors")
		if err := m.seq.SafeStop(); err != nil {
			fmt.Println("AVOID: Failed to send final stop:", err)
		}
	}()

	for ctx.Err() == nil {
		line, err := m.link.ReadLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("AVOID: Telemetry stream ended")
				return nil
			}
			fmt.Println("AVOID: Read failed; will retry", err)
			m.notifyError("read", err)
			m.pause(ctx)
			continue
		}
		if err := m.cycle(ctx, line); err != nil {
			if ctx.Err() != nil {
				// Only an abandoned plan has already sent Stop; a failed
				// send racing the interrupt has not.
				stopped = errors.Is(err, ctx.Err())
				break
			}
			fmt.Println("AVOID: Send failed; will retry", err)
			m.notifyError("write", err)
			m.pause(ctx)
		}
	}
	fmt.Println("Context done, shutting down")
	return nil
}

// cycle handles a single line.  It only returns an error from executing the
// plan; bad telemetry is skipped.
func (m *AvoidMode) cycle(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	reading, err := telemetry.DecodeLine(line)
	if err != nil {
		if !errors.Is(err, telemetry.ErrNotRecord) {
			fmt.Println("AVOID: Parse error", err, line)
		}
		m.notifySkipped(line, err)
		return nil
	}

	fmt.Println(reading)
	decision := m.engine.Decide(reading)
	switch decision.Rule {
	case policy.RuleEdge:
		fmt.Println("EDGE detected! Backing off and turning")
	case policy.RuleClose:
		fmt.Println("Obstacle close -> evasive")
	}
	for _, o := range m.observers {
		o.OnDecision(reading, decision)
	}
	return m.seq.Execute(ctx, decision.Plan)
}

func (m *AvoidMode) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.clock.After(m.errorPause):
	}
}

func (m *AvoidMode) notifySkipped(line string, err error) {
	for _, o := range m.observers {
		if so, ok := o.(SkipObserver); ok {
			so.OnSkipped(line, err)
		}
	}
}

func (m *AvoidMode) notifyError(op string, err error) {
	for _, o := range m.observers {
		if eo, ok := o.(ErrorObserver); ok {
			eo.OnTransportError(op, err)
		}
	}
}
