package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kr/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

// Firmware's SERIAL_PERIOD_MS.
const reportInterval = 150 * time.Millisecond

var rootCmd = &cobra.Command{
	Use:   "fakenano",
	Short: "Pretend to be the rover's microcontroller on a pseudo-terminal",
	Long: `Opens a pseudo-terminal, prints the path to point avoidbot at, then streams
simulated distance telemetry and logs the motion commands it receives.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().Int64("seed", 1, "random seed for the simulated room")
	rootCmd.Flags().String("link", "", "also create a symlink to the pty at this path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type nano struct {
	lock   sync.Mutex
	action motion.Action
	world  *world
}

func run(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetInt64("seed")
	linkPath, _ := cmd.Flags().GetString("link")

	master, tty, err := openRawPty()
	if err != nil {
		return err
	}
	defer master.Close()
	defer tty.Close()

	fmt.Println("---- Fake Nano ----")
	fmt.Println("Serial device:", tty.Name())
	if linkPath != "" {
		_ = os.Remove(linkPath)
		if err := os.Symlink(tty.Name(), linkPath); err != nil {
			return err
		}
		defer os.Remove(linkPath)
		fmt.Println("Linked at", linkPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancel()
	}()

	n := &nano{world: newWorld(seed)}
	go n.loopReadingCommands(master)
	n.loopReporting(ctx, master)
	return nil
}

// openRawPty opens a pseudo-terminal whose slave is already raw.  A cooked
// slave echoes our own telemetry back to us as commands until avoidbot opens
// it.
func openRawPty() (master, tty *os.File, err error) {
	master, tty, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		master.Close()
		tty.Close()
		return nil, nil, fmt.Errorf("failed to make pty raw: %w", err)
	}
	return master, tty, nil
}

func (n *nano) loopReadingCommands(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if err != nil {
			fmt.Println("Command stream closed:", err)
			return
		}
		a, ok := motion.ParseCommand(c)
		if !ok {
			continue
		}
		fmt.Printf("CMD %c (%v)\n", c, a)
		n.lock.Lock()
		n.action = a
		n.lock.Unlock()
	}
}

func (n *nano) loopReporting(ctx context.Context, w io.Writer) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n.lock.Lock()
		n.world.step(n.action)
		r := n.world.reading()
		n.lock.Unlock()

		if _, err := io.WriteString(w, record(r)); err != nil {
			fmt.Println("Failed to write telemetry:", err)
			return
		}
	}
}
