package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

const (
	S = 128

	// Distances beyond this are drawn as a full bar.
	barRangeCM = 200
)

// Screen shows the latest reading and the rule it triggered on a 128x128
// RGB565 framebuffer.
type Screen struct {
	lock    sync.Mutex
	reading telemetry.Reading
	rule    policy.Rule
	seen    bool
	cycles  int
}

func New() *Screen {
	return &Screen{}
}

func (s *Screen) OnDecision(r telemetry.Reading, d policy.Decision) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.reading = r
	s.rule = d.Rule
	s.seen = true
	s.cycles++
}

// LoopUpdatingScreen redraws device every 500ms until ctx is done, then
// blanks it.
func (s *Screen) LoopUpdatingScreen(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [S * S * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}
		if err := s.writeFrame(f); err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
	}
}

func (s *Screen) writeFrame(f io.WriteSeeker) error {
	buf := toRGB565(s.Render())
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for i := 0; i < S; i++ {
		if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

func (s *Screen) Render() image.Image {
	s.lock.Lock()
	r, rule, seen, cycles := s.reading, s.rule, s.seen, s.cycles
	s.lock.Unlock()

	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)

	if !seen {
		dc.DrawString("NO DATA", 30, 64)
		return dc.Image()
	}

	drawBar(dc, 14, "L", r.Left)
	drawBar(dc, 54, "F", r.Front)
	drawBar(dc, 94, "R", r.Right)

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("%-7s #%d", rule, cycles), 4, 124)
	if rule.Hazard() {
		dc.Push()
		dc.Translate(112, 112)
		DrawWarning(dc)
		dc.Pop()
	}
	return dc.Image()
}

func drawBar(dc *gg.Context, x float64, label string, cm int) {
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(label, x+6, 12)
	if cm >= telemetry.NoEcho {
		dc.SetRGB(1, 0.2, 0)
		dc.DrawString("--", x+3, 100)
		return
	}
	frac := float64(cm) / barRangeCM
	if frac > 1 {
		frac = 1
	}
	if frac < 0.25 {
		dc.SetRGB(1, 0.2, 0)
	}
	h := 80 * frac
	dc.DrawRectangle(x, 96-h, 20, h)
	dc.Fill()
	dc.DrawString(fmt.Sprintf("%d", cm), x, 110)
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}

// toRGB565 packs img for the panel, which is mounted rotated by 90 degrees.
func toRGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}
