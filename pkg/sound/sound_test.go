package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

func TestHazardsPlayCues(t *testing.T) {
	ch := make(chan string, 10)
	p := newPlayer(Cues{Edge: "/sounds/edge.wav", Obstacle: "/sounds/beep.wav"}, ch)
	e := policy.NewDefault()

	for _, r := range []telemetry.Reading{
		{Front: 999},
		{Front: 10, Left: 1, Right: 2},
		{Front: 30},
		{Front: 100},
	} {
		p.OnDecision(r, e.Decide(r))
	}
	p.PlayStartup() // no startup cue configured
	close(ch)

	var played []string
	for s := range ch {
		played = append(played, s)
	}
	assert.Equal(t, []string{"/sounds/edge.wav", "/sounds/beep.wav"}, played)
}

func TestPlayDropsWhenBusy(t *testing.T) {
	p := newPlayer(Cues{}, make(chan string))
	p.Play("/sounds/edge.wav") // nobody listening; must not block
}

func TestPlayAfterCloseDoesNotPanic(t *testing.T) {
	p := newPlayer(Cues{}, make(chan string, 1))
	p.Close()
	assert.NotPanics(t, func() { p.Play("/sounds/edge.wav") })
}
