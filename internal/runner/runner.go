// Package runner hosts boards and toggler components built from a robot
// file and routes commands to them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/toggler/internal/board"
	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/resource"
	"github.com/smazurov/toggler/internal/toggler"
)

// ErrComponentNotFound is returned when no component has the requested name.
var ErrComponentNotFound = errors.New("component not found")

// ErrUnsupportedModel is returned by Apply for components of an unknown model.
var ErrUnsupportedModel = errors.New("unsupported model")

// Publisher receives component events.
type Publisher interface {
	Publish(ev events.Event)
}

// BoardFactory builds a board backend.
type BoardFactory func(conf board.Config, logger *slog.Logger) (board.Board, error)

// ComponentInfo describes a running component.
type ComponentInfo struct {
	Name             string
	Model            string
	Board            string
	Pin              string
	SerializeToggles bool
	Generation       uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithBoardFactory replaces board.New.
func WithBoardFactory(f BoardFactory) Option {
	return func(r *Runner) {
		r.newBoard = f
	}
}

// WithDefaultTimeout bounds DoCommand calls that pass no timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.defaultTimeout = d
	}
}

type boardEntry struct {
	conf  board.Config
	board board.Board
}

type componentEntry struct {
	conf       resource.Config
	toggler    *toggler.Toggler
	generation uint64
}

// Runner owns boards and components. Apply calls are serialized; commands
// run concurrently with each other and with Apply.
type Runner struct {
	bus            Publisher
	logger         *slog.Logger
	newBoard       BoardFactory
	defaultTimeout time.Duration

	applyMu sync.Mutex

	mu         sync.RWMutex
	boards     map[string]*boardEntry
	components map[string]*componentEntry
	generation uint64
}

// New creates an empty runner. bus may be nil.
func New(bus Publisher, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		bus:        bus,
		logger:     logger,
		newBoard:   board.New,
		boards:     make(map[string]*boardEntry),
		components: make(map[string]*componentEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks a robot without touching the running generation: every
// component must be a toggler with valid attributes whose board is declared.
func Validate(robot *config.Robot) error {
	var errs []error
	for _, c := range robot.Components {
		conf := c.ResourceConfig()
		if conf.Model != toggler.Model {
			errs = append(errs, fmt.Errorf("component %q: %w %q", c.Name, ErrUnsupportedModel, c.Model))
			continue
		}
		required, _, err := toggler.Validate(conf.Attributes)
		if err != nil {
			errs = append(errs, fmt.Errorf("component %q: %w", c.Name, err))
			continue
		}
		for _, dep := range required {
			if _, ok := robot.Board(dep); !ok {
				errs = append(errs, fmt.Errorf("component %q: %w", c.Name, &toggler.Error{
					Code:      toggler.ErrCodeDependencyNotFound,
					Attribute: toggler.AttrBoardName,
					Message:   "board " + dep + " is not declared",
				}))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply moves the runner to the configuration in robot. Nothing changes if
// validation or board construction fails. Unchanged boards are reused,
// existing components are reconfigured in place and components missing from
// robot are closed.
func (r *Runner) Apply(ctx context.Context, robot *config.Robot) error {
	if err := Validate(robot); err != nil {
		return err
	}

	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	r.mu.RLock()
	oldBoards := r.boards
	oldComponents := r.components
	gen := r.generation + 1
	r.mu.RUnlock()

	nextBoards, built, err := r.buildBoards(ctx, robot.Boards, oldBoards)
	if err != nil {
		return err
	}

	deps := make(resource.Dependencies, len(nextBoards))
	for name, entry := range nextBoards {
		deps[board.Named(name)] = entry.board
	}

	nextComponents := make(map[string]*componentEntry, len(robot.Components))
	var pending []events.ComponentReconfiguredEvent
	for _, c := range robot.Components {
		conf := c.ResourceConfig()
		action := "reconfigured"

		var t *toggler.Toggler
		if existing, ok := oldComponents[c.Name]; ok {
			err = existing.toggler.Reconfigure(ctx, deps, conf)
			t = existing.toggler
		} else {
			action = "created"
			t, err = toggler.New(ctx, deps, conf, r.logger, toggler.WithToggleObserver(r.onToggle))
		}
		if err != nil {
			// only reachable if a board factory returned a nil board
			r.closeBoards(ctx, built)
			return fmt.Errorf("component %q: %w", c.Name, err)
		}

		nextComponents[c.Name] = &componentEntry{conf: conf, toggler: t, generation: gen}
		boardName, pin, _ := t.Binding()
		pending = append(pending, events.ComponentReconfiguredEvent{
			Component:  c.Name,
			Board:      boardName,
			Pin:        pin,
			Generation: gen,
			Action:     action,
		})
	}

	r.mu.Lock()
	r.boards = nextBoards
	r.components = nextComponents
	r.generation = gen
	r.mu.Unlock()

	for name, entry := range oldComponents {
		if _, kept := nextComponents[name]; kept {
			continue
		}
		if err := entry.toggler.Close(ctx); err != nil {
			r.logger.Warn("Failed to close component", "component", name, "error", err)
		}
		r.logger.Info("Component removed", "component", name)
		r.publish(events.ComponentRemovedEvent{Component: name, Timestamp: now()})
	}

	for name, entry := range oldBoards {
		if next, ok := nextBoards[name]; ok && next == entry {
			continue
		}
		closeBoard(ctx, r.logger, name, entry.board)
	}

	for _, ev := range pending {
		ev.Timestamp = now()
		r.publish(ev)
	}

	r.logger.Info("Configuration applied",
		"generation", gen,
		"boards", len(nextBoards),
		"components", len(nextComponents))
	return nil
}

// buildBoards returns the next board set, reusing entries whose
// configuration is unchanged. built lists only boards created by this call.
func (r *Runner) buildBoards(ctx context.Context, confs []board.Config, old map[string]*boardEntry) (next map[string]*boardEntry, built map[string]board.Board, err error) {
	next = make(map[string]*boardEntry, len(confs))
	built = make(map[string]board.Board)

	for _, conf := range confs {
		if existing, ok := old[conf.Name]; ok && reflect.DeepEqual(existing.conf, conf) {
			next[conf.Name] = existing
			continue
		}
		b, err := r.newBoard(conf, r.logger.With("board", conf.Name))
		if err != nil {
			r.closeBoards(ctx, built)
			return nil, nil, fmt.Errorf("board %q: %w", conf.Name, err)
		}
		built[conf.Name] = b
		next[conf.Name] = &boardEntry{conf: conf, board: b}
	}
	return next, built, nil
}

// DoCommand routes cmd to the named component. A zero timeout falls back to
// the runner default.
func (r *Runner) DoCommand(ctx context.Context, name string, cmd map[string]any, timeout time.Duration) (map[string]any, error) {
	t, err := r.toggler(name)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	result, err := t.DoCommandTimeout(ctx, cmd, timeout)
	if err != nil {
		code := toggler.CodeOf(err)
		r.logger.Warn("Command failed", "component", name, "code", code, "error", err)
		r.publish(events.CommandFailedEvent{
			Component: name,
			Code:      code,
			Error:     err.Error(),
			Timestamp: now(),
		})
		return nil, err
	}
	return result, nil
}

// Geometries asks the named component for its geometries.
func (r *Runner) Geometries(ctx context.Context, name string) ([]toggler.Geometry, error) {
	t, err := r.toggler(name)
	if err != nil {
		return nil, err
	}
	return t.Geometries(ctx, nil)
}

// Component describes one running component.
func (r *Runner) Component(name string) (ComponentInfo, bool) {
	r.mu.RLock()
	entry, ok := r.components[name]
	r.mu.RUnlock()
	if !ok {
		return ComponentInfo{}, false
	}
	return info(name, entry), true
}

// Components describes every running component, sorted by name.
func (r *Runner) Components() []ComponentInfo {
	r.mu.RLock()
	result := make([]ComponentInfo, 0, len(r.components))
	for name, entry := range r.components {
		result = append(result, info(name, entry))
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Generation returns the number of successful Apply calls.
func (r *Runner) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Close closes every component and board.
func (r *Runner) Close(ctx context.Context) error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	r.mu.Lock()
	components, boards := r.components, r.boards
	r.components = make(map[string]*componentEntry)
	r.boards = make(map[string]*boardEntry)
	r.mu.Unlock()

	var errs []error
	for name, entry := range components {
		if err := entry.toggler.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("component %q: %w", name, err))
		}
	}
	for name, entry := range boards {
		if c, ok := entry.board.(board.Closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("board %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) toggler(name string) (*toggler.Toggler, error) {
	r.mu.RLock()
	entry, ok := r.components[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, name)
	}
	return entry.toggler, nil
}

func (r *Runner) onToggle(t toggler.Toggled) {
	r.publish(events.PinToggledEvent{
		Component:  t.Component.Name,
		Board:      t.BoardName,
		Pin:        t.Pin,
		High:       t.High,
		DurationUs: t.Duration.Microseconds(),
		Timestamp:  now(),
	})
}

func (r *Runner) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func info(name string, entry *componentEntry) ComponentInfo {
	ci := ComponentInfo{
		Name:       name,
		Model:      entry.conf.Model.String(),
		Generation: entry.generation,
	}
	ci.Board, ci.Pin, _ = entry.toggler.Binding()
	ci.SerializeToggles, _ = entry.conf.Attributes[toggler.AttrSerializeToggles].(bool)
	return ci
}

func (r *Runner) closeBoards(ctx context.Context, boards map[string]board.Board) {
	for name, b := range boards {
		closeBoard(ctx, r.logger, name, b)
	}
}

func closeBoard(ctx context.Context, logger *slog.Logger, name string, b board.Board) {
	c, ok := b.(board.Closer)
	if !ok {
		return
	}
	if err := c.Close(ctx); err != nil {
		logger.Warn("Failed to close board", "board", name, "error", err)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
