package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/toggler/internal/resource"
)

// Sim is an in-memory board for development machines and tests.
type Sim struct {
	name    resource.Name
	latency time.Duration

	mu    sync.Mutex
	pins  map[string]bool
	reads int
	sets  int
}

// NewSim creates a sim board with the given initial pin levels.
func NewSim(name string, initial map[string]bool, latency time.Duration) *Sim {
	pins := make(map[string]bool, len(initial))
	for pin, level := range initial {
		pins[pin] = level
	}
	return &Sim{
		name:    Named(name),
		latency: latency,
		pins:    pins,
	}
}

// Name implements Board.
func (s *Sim) Name() resource.Name {
	return s.name
}

// GPIOPinByName implements Board.
func (s *Sim) GPIOPinByName(ctx context.Context, name string) (GPIOPin, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pins[name]; !ok {
		return nil, fmt.Errorf("%w: %q on board %q", ErrPinNotFound, name, s.name.Name)
	}
	return &simPin{board: s, name: name}, nil
}

// Level returns the current level of a pin without counting as I/O.
func (s *Sim) Level(name string) (level, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	level, ok = s.pins[name]
	return level, ok
}

// SetLevel changes a pin level from outside any component, e.g. to simulate
// an external writer.
func (s *Sim) SetLevel(name string, high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[name] = high
}

// IOCount returns the number of Get and Set calls served so far.
func (s *Sim) IOCount() (reads, sets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.sets
}

// Pins returns the sorted pin names.
func (s *Sim) Pins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.pins))
	for name := range s.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close is a no-op.
func (s *Sim) Close(_ context.Context) error {
	return nil
}

func (s *Sim) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type simPin struct {
	board *Sim
	name  string
}

func (p *simPin) Get(ctx context.Context) (bool, error) {
	if err := p.board.wait(ctx); err != nil {
		return false, err
	}
	p.board.mu.Lock()
	defer p.board.mu.Unlock()
	p.board.reads++
	return p.board.pins[p.name], nil
}

func (p *simPin) Set(ctx context.Context, high bool) error {
	if err := p.board.wait(ctx); err != nil {
		return err
	}
	p.board.mu.Lock()
	defer p.board.mu.Unlock()
	p.board.sets++
	p.board.pins[p.name] = high
	return nil
}
