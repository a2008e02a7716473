package sound

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

// Cues maps events to wav files.  Empty paths are silent.
type Cues struct {
	Edge     string
	Obstacle string
	Startup  string
}

// Player plays hazard cues on a background goroutine.  Playing never blocks the
// control loop; if the player is busy the cue is dropped.
type Player struct {
	cues         Cues
	soundsToPlay chan string
}

func NewPlayer(cues Cues) *Player {
	return &Player{
		cues:         cues,
		soundsToPlay: InitSound(),
	}
}

func newPlayer(cues Cues, ch chan string) *Player {
	return &Player{cues: cues, soundsToPlay: ch}
}

func (p *Player) OnDecision(r telemetry.Reading, d policy.Decision) {
	switch d.Rule {
	case policy.RuleEdge:
		p.Play(p.cues.Edge)
	case policy.RuleClose:
		p.Play(p.cues.Obstacle)
	}
}

func (p *Player) PlayStartup() {
	p.Play(p.cues.Startup)
}

func (p *Player) Play(path string) {
	if path == "" {
		return
	}
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.soundsToPlay <- path:
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", path)
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

func InitSound() chan string {
	soundsToPlay := make(chan string)
	go func() {
		defer func() {
			recover()
			for s := range soundsToPlay {
				fmt.Println("Unable to play", s)
			}
		}()
		sampleRate := beep.SampleRate(44100)
		err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
		if err != nil {
			fmt.Println("Failed to open speaker", err)
			for s := range soundsToPlay {
				fmt.Println("Unable to play", s)
			}
			return
		}
		var ctrl *beep.Ctrl
		var s beep.StreamSeekCloser
		for soundToPlay := range soundsToPlay {
			if ctrl != nil {
				speaker.Lock()
				ctrl.Paused = true
				ctrl.Streamer = nil
				speaker.Unlock()
				ctrl = nil
			}
			if s != nil {
				s.Close()
				s = nil
			}

			f, err := os.Open(soundToPlay)
			if err != nil {
				fmt.Println("Failed to open sound", err)
				continue
			}
			s, _, err = wav.Decode(f)
			if err != nil {
				fmt.Println("Failed to decode sound", err)
				f.Close()
				continue
			}
			ctrl = &beep.Ctrl{Streamer: s}
			speaker.Play(ctrl)
		}
	}()
	return soundsToPlay
}
