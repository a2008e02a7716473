package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/avoidbot/pkg/link"
	"github.com/tigerbot-team/avoidbot/pkg/policy"
)

const (
	DefaultPath = "/cfg/avoidbot.yaml"

	// DeviceEnvVar overrides the configured serial device.
	DeviceEnvVar = "AVOIDBOT_DEVICE"
)

type Sounds struct {
	Edge     string `yaml:"edge"`
	Obstacle string `yaml:"obstacle"`
	Startup  string `yaml:"startup"`
}

type Config struct {
	Device      string        `yaml:"device"`
	BaudRate    int           `yaml:"baudRate"`
	BootWait    time.Duration `yaml:"bootWait"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
	// ErrorPause is how long the loop backs off after a transport error.
	ErrorPause time.Duration `yaml:"errorPause"`

	Thresholds policy.Thresholds `yaml:"thresholds"`
	Timings    policy.Timings    `yaml:"timings"`

	// Optional extras; empty disables them.
	MetricsAddr  string `yaml:"metricsAddr"`
	ScreenDevice string `yaml:"screenDevice"`
	Sounds       Sounds `yaml:"sounds"`
	EStopPin     string `yaml:"estopPin"`
}

func Default() Config {
	return Config{
		Device:      link.DefaultDevice,
		BaudRate:    link.DefaultBaudRate,
		BootWait:    2 * time.Second,
		ReadTimeout: time.Second,
		ErrorPause:  500 * time.Millisecond,
		Thresholds:  policy.DefaultThresholds(),
		Timings:     policy.DefaultTimings(),
	}
}

// Load reads path over the defaults.  A missing file just means defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("No config file at", path, "using defaults")
		} else if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		} else if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if dev := os.Getenv(DeviceEnvVar); dev != "" {
		cfg.Device = dev
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Device) == "" {
		return errors.New("device must be set")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baudRate must be positive, got %d", c.BaudRate)
	}
	if c.BootWait < 0 || c.ErrorPause < 0 {
		return errors.New("bootWait and errorPause must not be negative")
	}
	// Without a read timeout a silent port would hide an interrupt forever.
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("readTimeout must be positive, got %v", c.ReadTimeout)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return c.Timings.Validate()
}

func (c Config) Link() link.Config {
	return link.Config{
		Device:      c.Device,
		BaudRate:    c.BaudRate,
		BootWait:    c.BootWait,
		ReadTimeout: c.ReadTimeout,
	}
}

// InUsePath is where the effective config for path is written,
// e.g. /cfg/avoidbot.yaml -> /cfg/avoidbot-in-use.yaml.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use" + ext
}

// WriteInUse records the config actually in effect, for post-run inspection.
func (c Config) WriteInUse(path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0666)
}
