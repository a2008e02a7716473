package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/avoidbot/pkg/policy"
)

func TestDefaultsMatchFirmware(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.BootWait)
	assert.Equal(t, 500*time.Millisecond, cfg.ErrorPause)
	assert.Equal(t, policy.Thresholds{EdgeTimeout: 900, ObstacleClose: 18, ObstacleWarn: 50}, cfg.Thresholds)
	assert.Equal(t, 50*time.Millisecond, cfg.Timings.Brief)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	path := filepath.Join(t.TempDir(), "avoidbot.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
device: /dev/ttyACM0
thresholds:
  obstacleClose: 20
  obstacleWarn: 60
  edgeTimeout: 900
timings:
  nudge: 150ms
metricsAddr: ":2112"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 20, cfg.Thresholds.ObstacleClose)
	assert.Equal(t, 60, cfg.Thresholds.ObstacleWarn)
	assert.Equal(t, 150*time.Millisecond, cfg.Timings.Nudge)
	assert.Equal(t, 350*time.Millisecond, cfg.Timings.CloseTurn)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
}

func TestEnvOverridesDevice(t *testing.T) {
	t.Setenv(DeviceEnvVar, "/dev/ttyAMA0")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Device)
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	path := filepath.Join(t.TempDir(), "avoidbot.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("thresholds:\n  obstacleWarn: 10\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, policy.ErrInvalidThresholds)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	path := filepath.Join(t.TempDir(), "avoidbot.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("baud: 9600\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteInUseRoundTrips(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	dir := t.TempDir()
	cfg := Default()
	cfg.Device = "/dev/ttyS9"
	cfg.Timings.EdgeTurn = 500 * time.Millisecond

	path := InUsePath(filepath.Join(dir, "avoidbot.yaml"))
	assert.Equal(t, filepath.Join(dir, "avoidbot-in-use.yaml"), path)
	require.NoError(t, cfg.WriteInUse(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsZeroReadTimeout(t *testing.T) {
	t.Setenv(DeviceEnvVar, "")
	path := filepath.Join(t.TempDir(), "avoidbot.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("readTimeout: 0s\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "readTimeout")

	cfg := Default()
	cfg.ReadTimeout = -time.Second
	assert.Error(t, cfg.Validate())
}
