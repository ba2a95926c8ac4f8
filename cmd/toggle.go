package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/logging"
	"github.com/smazurov/toggler/internal/runner"
	"github.com/smazurov/toggler/internal/toggler"
	"github.com/spf13/cobra"
)

// levelRecorder keeps the level reported by the last toggle.
type levelRecorder struct {
	mu   sync.Mutex
	high bool
}

func (l *levelRecorder) Publish(ev events.Event) {
	if e, ok := ev.(events.PinToggledEvent); ok {
		l.mu.Lock()
		l.high = e.High
		l.mu.Unlock()
	}
}

func (l *levelRecorder) level() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.high {
		return "high"
	}
	return "low"
}

// CreateToggleCmd creates the toggle command.
func CreateToggleCmd() *cobra.Command {
	var (
		robotFile string
		timeout   time.Duration
		count     int
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "toggle <component>",
		Short: "Toggle a component's pin once without starting the server",
		Long: `Builds the boards and components of a robot file, sends {"action": "toggle"} ` +
			`to the named component and prints the resulting pin level.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			robot, err := config.LoadRobot(robotFile)
			if err != nil {
				return err
			}

			levels := &levelRecorder{}
			r := runner.New(levels, logging.GetLogger("toggle"), runner.WithDefaultTimeout(timeout))
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = r.Close(closeCtx)
			}()

			if err := r.Apply(ctx, robot); err != nil {
				return err
			}

			command := map[string]any{toggler.CommandAction: toggler.ActionToggle}
			for i := range count {
				if i > 0 && interval > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(interval):
					}
				}
				if _, err := r.DoCommand(ctx, name, command, 0); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, levels.level())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&robotFile, "robot", "robot.toml", "Robot file with boards and components")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Timeout for each toggle")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of toggles")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Pause between toggles")

	return cmd
}
