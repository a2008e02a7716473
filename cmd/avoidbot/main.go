package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerbot-team/avoidbot/pkg/avoidmode"
	"github.com/tigerbot-team/avoidbot/pkg/config"
	"github.com/tigerbot-team/avoidbot/pkg/estop"
	"github.com/tigerbot-team/avoidbot/pkg/link"
	"github.com/tigerbot-team/avoidbot/pkg/metrics"
	"github.com/tigerbot-team/avoidbot/pkg/policy"
	"github.com/tigerbot-team/avoidbot/pkg/screen"
	"github.com/tigerbot-team/avoidbot/pkg/sound"
)

var rootCmd = &cobra.Command{
	Use:   "avoidbot",
	Short: "Reactive obstacle and edge avoidance for a serial-attached rover",
	Long: `Reads {"F":..,"L":..,"R":..} distance telemetry from the rover's microcontroller
and answers each sample with a timed sequence of F/B/L/R/S motion commands.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("config", config.DefaultPath, "YAML config file")
	rootCmd.Flags().String("device", "", "serial device (overrides config and $"+config.DeviceEnvVar+")")
	rootCmd.Flags().Int("baud", 0, "serial baud rate (overrides config)")
	rootCmd.Flags().Bool("dry-run", false, "read telemetry from stdin and print commands instead of using the serial port; Ctrl-C still prints the final stop")
	rootCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	fmt.Println("---- Avoidbot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		cfg.Device, _ = cmd.Flags().GetString("device")
	}
	if cmd.Flags().Changed("baud") {
		cfg.BaudRate, _ = cmd.Flags().GetInt("baud")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("Using config: %#v\n", cfg)
	if err := cfg.WriteInUse(config.InUsePath(cfgPath)); err != nil {
		fmt.Println("Failed to record config in use:", err)
	}

	engine, err := policy.New(cfg.Thresholds, cfg.Timings)
	if err != nil {
		return err
	}
	fmt.Printf("Policy thresholds: %+v\n", engine.Thresholds())

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	opts := []avoidmode.Option{avoidmode.WithErrorPause(cfg.ErrorPause)}

	if cfg.MetricsAddr != "" {
		m := metrics.New()
		go m.Serve(ctx, cfg.MetricsAddr)
		opts = append(opts, avoidmode.WithObserver(m))
	}
	if cfg.ScreenDevice != "" {
		scr := screen.New()
		go scr.LoopUpdatingScreen(ctx, cfg.ScreenDevice)
		opts = append(opts, avoidmode.WithObserver(scr))
	}
	if cfg.Sounds != (config.Sounds{}) {
		player := sound.NewPlayer(sound.Cues{
			Edge:     cfg.Sounds.Edge,
			Obstacle: cfg.Sounds.Obstacle,
			Startup:  cfg.Sounds.Startup,
		})
		defer player.Close()
		player.PlayStartup()
		opts = append(opts, avoidmode.WithObserver(player))
	}
	if cfg.EStopPin != "" {
		go func() {
			err := estop.Watch(ctx, cfg.EStopPin, cancel)
			if err != nil && ctx.Err() == nil {
				fmt.Println("Emergency stop button unavailable:", err)
			}
		}()
	}

	var l avoidmode.Link
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Println("Dry run: reading telemetry from stdin")
		l = link.NewDummy(os.Stdin)
	} else {
		s, err := link.OpenWhenReady(ctx, cfg.Link(), 1*time.Second)
		if err != nil {
			// Interrupted before the microcontroller appeared.
			return nil
		}
		defer s.Close()
		l = s
	}

	return avoidmode.New(l, engine, opts...).Run(ctx)
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		// Give the control loop time to send its final stop.
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
