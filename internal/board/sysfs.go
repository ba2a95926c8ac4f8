package board

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smazurov/toggler/internal/resource"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Board on top of the Linux LED class interface. Each LED is
// exposed as a pin; brightness 0 is low, anything else is high.
type sysfs struct {
	name resource.Name
	root string
	conf Config
}

// newSysfs creates a sysfs board. conf.Pins maps pin names to LED directory
// names under root.
func newSysfs(conf Config) *sysfs {
	root := conf.Path
	if root == "" {
		root = sysfsLEDPath
	}
	return &sysfs{
		name: Named(conf.Name),
		root: root,
		conf: conf,
	}
}

// Name implements Board.
func (s *sysfs) Name() resource.Name {
	return s.name
}

// GPIOPinByName implements Board.
func (s *sysfs) GPIOPinByName(ctx context.Context, name string) (GPIOPin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ledPath := filepath.Join(s.root, s.conf.resolvePin(name))

	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: LED %q not found at %s", ErrPinNotFound, name, ledPath)
	}

	return &sysfsPin{path: ledPath}, nil
}

// Close is a no-op; sysfs files are opened per operation.
func (s *sysfs) Close(_ context.Context) error {
	return nil
}

type sysfsPin struct {
	path string
}

func (p *sysfsPin) Get(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, err := os.ReadFile(filepath.Join(p.path, "brightness"))
	if err != nil {
		return false, fmt.Errorf("failed to read LED brightness: %w", err)
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, fmt.Errorf("invalid LED brightness %q: %w", strings.TrimSpace(string(data)), err)
	}
	return value > 0, nil
}

func (p *sysfsPin) Set(ctx context.Context, high bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Manual control requires the "none" trigger, otherwise the kernel keeps
	// driving the LED.
	triggerPath := filepath.Join(p.path, "trigger")
	if _, err := os.Stat(triggerPath); err == nil {
		if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
			return fmt.Errorf("failed to set LED trigger to none: %w", err)
		}
	}

	brightnessValue := "0"
	if high {
		brightnessValue = "1"
	}
	if err := os.WriteFile(filepath.Join(p.path, "brightness"), []byte(brightnessValue), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}
