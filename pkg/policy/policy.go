package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

// Thresholds on the front distance, in centimetres.
type Thresholds struct {
	// At or beyond this the front sensor is taken to be looking over a drop.
	EdgeTimeout int `yaml:"edgeTimeout"`
	// Below this (and above zero) a collision is imminent.
	ObstacleClose int `yaml:"obstacleClose"`
	// Below this the robot steers away while still advancing.
	ObstacleWarn int `yaml:"obstacleWarn"`
}

var ErrInvalidThresholds = errors.New("thresholds must satisfy obstacleClose < obstacleWarn < edgeTimeout")

func DefaultThresholds() Thresholds {
	return Thresholds{
		EdgeTimeout:   900,
		ObstacleClose: 18,
		ObstacleWarn:  50,
	}
}

func (t Thresholds) Validate() error {
	if t.ObstacleClose < t.ObstacleWarn && t.ObstacleWarn < t.EdgeTimeout {
		return nil
	}
	return fmt.Errorf("%w (got close=%d warn=%d edge=%d)",
		ErrInvalidThresholds, t.ObstacleClose, t.ObstacleWarn, t.EdgeTimeout)
}

// Timings are the hold durations used when building plans.
type Timings struct {
	Brief       time.Duration `yaml:"brief"`
	EdgeBackup  time.Duration `yaml:"edgeBackup"`
	EdgeTurn    time.Duration `yaml:"edgeTurn"`
	CloseBackup time.Duration `yaml:"closeBackup"`
	CloseTurn   time.Duration `yaml:"closeTurn"`
	Nudge       time.Duration `yaml:"nudge"`
}

func DefaultTimings() Timings {
	return Timings{
		Brief:       50 * time.Millisecond,
		EdgeBackup:  400 * time.Millisecond,
		EdgeTurn:    450 * time.Millisecond,
		CloseBackup: 300 * time.Millisecond,
		CloseTurn:   350 * time.Millisecond,
		Nudge:       120 * time.Millisecond,
	}
}

func (t Timings) Validate() error {
	for name, d := range map[string]time.Duration{
		"brief":       t.Brief,
		"edgeBackup":  t.EdgeBackup,
		"edgeTurn":    t.EdgeTurn,
		"closeBackup": t.CloseBackup,
		"closeTurn":   t.CloseTurn,
		"nudge":       t.Nudge,
	} {
		if d < 0 {
			return fmt.Errorf("timing %s must not be negative, got %v", name, d)
		}
	}
	return nil
}

// Rule identifies which rule produced a plan.
type Rule int

const (
	RuleEdge Rule = iota
	RuleClose
	RuleCaution
	RuleClear
)

func (r Rule) String() string {
	switch r {
	case RuleEdge:
		return "edge"
	case RuleClose:
		return "close"
	case RuleCaution:
		return "caution"
	case RuleClear:
		return "clear"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Hazard is true for the rules that back the robot up.
func (r Rule) Hazard() bool {
	return r == RuleEdge || r == RuleClose
}

type Decision struct {
	Rule Rule
	Plan motion.Plan
}

type rule struct {
	rule    Rule
	matches func(t Thresholds, r telemetry.Reading) bool
	plan    func(t Timings, r telemetry.Reading) motion.Plan
}

// rules are evaluated in order; the first match decides the whole plan.
var rules = []rule{
	{
		rule: RuleEdge,
		matches: func(t Thresholds, r telemetry.Reading) bool {
			return r.Front >= t.EdgeTimeout
		},
		plan: func(t Timings, r telemetry.Reading) motion.Plan {
			// Orientation relative to the edge is unknown so the side
			// sensors are ignored; always the same recovery.
			return motion.Plan{
				{Action: motion.Stop, Hold: t.Brief},
				{Action: motion.Backward, Hold: t.EdgeBackup},
				{Action: motion.Stop, Hold: t.Brief},
				{Action: motion.TurnLeft, Hold: t.EdgeTurn},
				{Action: motion.Stop, Hold: t.Brief},
			}
		},
	},
	{
		rule: RuleClose,
		matches: func(t Thresholds, r telemetry.Reading) bool {
			// Zero means no data, not contact.
			return r.Front > 0 && r.Front < t.ObstacleClose
		},
		plan: func(t Timings, r telemetry.Reading) motion.Plan {
			return motion.Plan{
				{Action: motion.Stop, Hold: t.Brief},
				{Action: motion.Backward, Hold: t.CloseBackup},
				{Action: motion.Stop, Hold: t.Brief},
				{Action: clearerSide(r), Hold: t.CloseTurn},
				{Action: motion.Stop, Hold: t.Brief},
			}
		},
	},
	{
		rule: RuleCaution,
		matches: func(t Thresholds, r telemetry.Reading) bool {
			return r.Front < t.ObstacleWarn
		},
		plan: func(t Timings, r telemetry.Reading) motion.Plan {
			return motion.Plan{
				{Action: clearerSide(r), Hold: t.Nudge},
				{Action: motion.Forward},
			}
		},
	},
	{
		rule: RuleClear,
		matches: func(Thresholds, telemetry.Reading) bool {
			return true
		},
		plan: func(Timings, telemetry.Reading) motion.Plan {
			return motion.Plan{{Action: motion.Forward}}
		},
	},
}

// clearerSide turns towards the side with more room; a tie turns right.
func clearerSide(r telemetry.Reading) motion.Action {
	if r.Left > r.Right {
		return motion.TurnLeft
	}
	return motion.TurnRight
}

// Engine maps a reading to a plan.  It holds no per-cycle state.
type Engine struct {
	thresholds Thresholds
	timings    Timings
}

func New(thresholds Thresholds, timings Timings) (*Engine, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := timings.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		thresholds: thresholds,
		timings:    timings,
	}, nil
}

func NewDefault() *Engine {
	return &Engine{
		thresholds: DefaultThresholds(),
		timings:    DefaultTimings(),
	}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

func (e *Engine) Decide(r telemetry.Reading) Decision {
	for _, rl := range rules {
		if rl.matches(e.thresholds, r) {
			return Decision{Rule: rl.rule, Plan: rl.plan(e.timings, r)}
		}
	}
	panic("policy: no rule matched")
}

// Decide uses the default thresholds and timings.
func Decide(r telemetry.Reading) motion.Plan {
	return NewDefault().Decide(r).Plan
}
