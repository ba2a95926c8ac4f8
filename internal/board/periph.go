package board

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/smazurov/toggler/internal/resource"
)

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

// initHost loads the periph host drivers once per process.
func initHost() error {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	return hostInitErr
}

// periphBoard implements Board with periph.io, addressing lines through the
// gpioreg registry (e.g. "GPIO17" on a Raspberry Pi).
type periphBoard struct {
	name   resource.Name
	conf   Config
	lookup func(string) gpio.PinIO
}

// newPeriph initialises the host drivers and returns a board backed by the
// global gpioreg registry.
func newPeriph(conf Config) (*periphBoard, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}
	return &periphBoard{
		name:   Named(conf.Name),
		conf:   conf,
		lookup: gpioreg.ByName,
	}, nil
}

// Name implements Board.
func (b *periphBoard) Name() resource.Name {
	return b.name
}

// GPIOPinByName implements Board.
func (b *periphBoard) GPIOPinByName(ctx context.Context, name string) (GPIOPin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line := b.conf.resolvePin(name)
	p := b.lookup(line)
	if p == nil {
		return nil, fmt.Errorf("%w: %q (line %q) on board %q", ErrPinNotFound, name, line, b.name.Name)
	}
	return &periphPin{pin: p}, nil
}

// Close is a no-op; periph keeps lines registered for the process lifetime.
func (b *periphBoard) Close(_ context.Context) error {
	return nil
}

type periphPin struct {
	pin gpio.PinIO
}

func (p *periphPin) Get(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.pin.Read() == gpio.High, nil
}

func (p *periphPin) Set(ctx context.Context, high bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("failed to drive %s: %w", p.pin.Name(), err)
	}
	return nil
}
