package motion

import (
	"fmt"
	"strings"
	"time"
)

// Action is a single motion instruction understood by the microcontroller.
type Action int

const (
	Stop Action = iota
	Forward
	Backward
	TurnLeft
	TurnRight
)

// Wire bytes, as decoded by the firmware's command switch.
const (
	CmdForward   byte = 'F'
	CmdBackward  byte = 'B'
	CmdTurnLeft  byte = 'L'
	CmdTurnRight byte = 'R'
	CmdStop      byte = 'S'
)

func (a Action) Command() byte {
	switch a {
	case Forward:
		return CmdForward
	case Backward:
		return CmdBackward
	case TurnLeft:
		return CmdTurnLeft
	case TurnRight:
		return CmdTurnRight
	default:
		return CmdStop
	}
}

func (a Action) String() string {
	switch a {
	case Stop:
		return "Stop"
	case Forward:
		return "Forward"
	case Backward:
		return "Backward"
	case TurnLeft:
		return "TurnLeft"
	case TurnRight:
		return "TurnRight"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseCommand maps a wire byte back to its Action.  ok is false for bytes the
// firmware would ignore.
func ParseCommand(b byte) (a Action, ok bool) {
	switch b {
	case CmdForward:
		return Forward, true
	case CmdBackward:
		return Backward, true
	case CmdTurnLeft:
		return TurnLeft, true
	case CmdTurnRight:
		return TurnRight, true
	case CmdStop:
		return Stop, true
	}
	return Stop, false
}

// Step issues Action and then holds it for Hold before the next step.  A zero
// Hold means "issue and carry on".
type Step struct {
	Action Action
	Hold   time.Duration
}

func (s Step) String() string {
	if s.Hold == 0 {
		return s.Action.String()
	}
	return fmt.Sprintf("%s(%v)", s.Action, s.Hold)
}

// Plan is the ordered list of steps computed from a single reading.
type Plan []Step

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Duration is the total time the plan holds the robot for.
func (p Plan) Duration() (d time.Duration) {
	for _, s := range p {
		d += s.Hold
	}
	return
}
