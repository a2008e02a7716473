package main

import (
	"fmt"
	"math/rand"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

// Sensor range of the HC-SR04 as configured by the firmware.
const maxRangeCM = 600

// world is a crude model of a rover in a cluttered room with a table edge
// somewhere ahead.  Distances are in centimetres.
type world struct {
	rng *rand.Rand

	front, left, right int
	// edgeIn counts forward ticks until the front sensor looks over the edge.
	edgeIn int
}

func newWorld(seed int64) *world {
	w := &world{rng: rand.New(rand.NewSource(seed))}
	w.front, w.left, w.right = 120, 40, 60
	w.edgeIn = w.nextEdge()
	return w
}

func (w *world) nextEdge() int {
	return 40 + w.rng.Intn(60)
}

// step advances the model by one telemetry period under action.
func (w *world) step(a motion.Action) {
	switch a {
	case motion.Forward:
		w.front -= 4
		w.edgeIn--
	case motion.Backward:
		w.front += 4
		if w.edgeIn <= 0 {
			w.edgeIn = w.nextEdge()
		}
	case motion.TurnLeft, motion.TurnRight:
		// Turning swings a side into view.
		if a == motion.TurnLeft {
			w.front, w.left, w.right = w.left, w.right+w.rng.Intn(20), w.front
		} else {
			w.front, w.left, w.right = w.right, w.front, w.left+w.rng.Intn(20)
		}
		w.front += w.rng.Intn(40)
	}
	w.front = clamp(w.front)
	w.left = clamp(w.left)
	w.right = clamp(w.right)
}

func clamp(cm int) int {
	if cm < 2 {
		return 2
	}
	if cm > maxRangeCM {
		return maxRangeCM
	}
	return cm
}

func (w *world) reading() telemetry.Reading {
	r := telemetry.Reading{Front: w.front, Left: w.left, Right: w.right}
	if w.edgeIn <= 0 {
		r.Front = telemetry.NoEcho
	}
	return r
}

// record formats a reading exactly as the firmware prints it.
func record(r telemetry.Reading) string {
	return fmt.Sprintf(`{"F":%d,"L":%d,"R":%d}`, r.Front, r.Left, r.Right) + "\r\n"
}
