// Package board defines the GPIO board capability consumed by components and
// the backends that implement it.
package board

import (
	"context"
	"errors"

	"github.com/smazurov/toggler/internal/resource"
)

// ErrPinNotFound is returned (wrapped) when a board does not know a pin name.
var ErrPinNotFound = errors.New("pin not found")

// Board exposes named GPIO pins.
type Board interface {
	// Name returns the dependency identifier of the board.
	Name() resource.Name

	// GPIOPinByName returns a handle to the named pin. It fails with an error
	// wrapping ErrPinNotFound if the board has no such pin.
	GPIOPinByName(ctx context.Context, name string) (GPIOPin, error)
}

// GPIOPin is a single GPIO line.
type GPIOPin interface {
	// Get reads the current level; true means high.
	Get(ctx context.Context) (bool, error)

	// Set drives the pin high or low.
	Set(ctx context.Context, high bool) error
}

// Named returns the dependency identifier for a board called name. Components
// use it to look their board up in a resource.Dependencies map.
func Named(name string) resource.Name {
	return resource.NewName(resource.APIBoard, name)
}

// Backend types accepted by New.
const (
	TypeAuto   = "auto"
	TypeSim    = "sim"
	TypeSysfs  = "sysfs"
	TypePeriph = "periph"
)

// Config describes one board in the robot file.
type Config struct {
	Name string `toml:"name" yaml:"name" json:"name"`
	Type string `toml:"type" yaml:"type" json:"type"`

	// Pins maps the pin names components use to backend names: GPIO line
	// names for periph, LED class directories for sysfs. Unmapped names are
	// passed through unchanged.
	Pins map[string]string `toml:"pins" yaml:"pins" json:"pins"`

	// Path overrides the sysfs LED class root.
	Path string `toml:"path" yaml:"path" json:"path"`

	// Initial levels for the sim backend. Only these pins exist on a sim board
	// unless Pins is also set.
	Initial map[string]bool `toml:"initial" yaml:"initial" json:"initial"`

	// LatencyMs is added to every sim pin operation.
	LatencyMs int `toml:"latency_ms" yaml:"latency_ms" json:"latency_ms"`
}

// resolvePin maps a component-facing pin name to the backend name.
func (c Config) resolvePin(name string) string {
	if mapped, ok := c.Pins[name]; ok && mapped != "" {
		return mapped
	}
	return name
}
