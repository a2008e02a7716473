package link

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

const (
	DefaultDevice   = "/dev/ttyUSB0"
	DefaultBaudRate = 115200
)

// Config describes how to reach the microcontroller.
type Config struct {
	Device   string
	BaudRate int
	// BootWait is how long to wait after opening for the microcontroller to
	// come out of reset.  Opening the port toggles DTR, which resets an
	// Arduino Nano; its bootloader takes most of two seconds.
	BootWait time.Duration
	// ReadTimeout bounds each read so that cancellation is noticed.
	ReadTimeout time.Duration
}

// port is the subset of serial.Port that we use.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

var openPort = func(device string, mode *serial.Mode) (port, error) {
	return serial.Open(device, mode)
}

// Serial is a line-oriented link over a serial port.
type Serial struct {
	device string

	writeLock sync.Mutex
	port      port
	lines     *lineReader
}

// Open opens the serial port and waits out the microcontroller's reset.  Any
// bytes received during boot are discarded.
func Open(ctx context.Context, cfg Config) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	if cfg.ReadTimeout > 0 {
		if rt, ok := p.(interface{ SetReadTimeout(time.Duration) error }); ok {
			if err := rt.SetReadTimeout(cfg.ReadTimeout); err != nil {
				_ = p.Close()
				return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
			}
		}
	}

	fmt.Printf("LINK: Opened %s at %d baud, waiting %v for microcontroller to boot\n",
		cfg.Device, cfg.BaudRate, cfg.BootWait)
	select {
	case <-ctx.Done():
		_ = p.Close()
		return nil, ctx.Err()
	case <-time.After(cfg.BootWait):
	}
	if err := p.ResetInputBuffer(); err != nil {
		fmt.Println("LINK: Failed to flush boot output:", err)
	}

	return &Serial{
		device: cfg.Device,
		port:   p,
		lines:  newLineReader(p),
	}, nil
}

// OpenWhenReady retries Open every retry interval until the microcontroller
// shows up or ctx is done.
func OpenWhenReady(ctx context.Context, cfg Config, retry time.Duration) (*Serial, error) {
	firstLog := true
	for {
		s, err := Open(ctx, cfg)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if firstLog {
			fmt.Printf("LINK: Waiting for microcontroller: %v.\n", err)
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry):
		}
	}
}

func (s *Serial) String() string {
	return s.device
}

func (s *Serial) ReadLine(ctx context.Context) (string, error) {
	line, err := s.lines.ReadLine(ctx)
	if err != nil && ctx.Err() == nil {
		s.lines.Drop()
		return "", fmt.Errorf("failed to read from serial: %w", err)
	}
	return line, err
}

func (s *Serial) Send(a motion.Action) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	_, err := s.port.Write([]byte{a.Command()})
	if err != nil {
		return fmt.Errorf("failed to write %q to serial: %w", a.Command(), err)
	}
	return nil
}

func (s *Serial) Close() error {
	return s.port.Close()
}
