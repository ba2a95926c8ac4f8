// Package toggler implements a generic component that flips the level of one
// GPIO pin on a board when it receives {"action": "toggle"}.
package toggler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/toggler/internal/board"
	"github.com/smazurov/toggler/internal/resource"
)

// Model is the model triplet this component registers under.
var Model = resource.Model{Namespace: "naomi", Family: "led-toggle", Name: "toggler"}

// Command keys and values understood by DoCommand.
const (
	CommandAction = "action"
	ActionToggle  = "toggle"
)

// Geometry is a placeholder for the physical geometry of a component.
type Geometry struct {
	Label string
}

// Toggled describes one completed toggle.
type Toggled struct {
	Component resource.Name
	BoardName string
	Pin       string
	High      bool
	Duration  time.Duration
}

// Option configures a Toggler.
type Option func(*Toggler)

// WithToggleObserver registers a callback run after every successful toggle.
func WithToggleObserver(fn func(Toggled)) Option {
	return func(t *Toggler) {
		t.observer = fn
	}
}

// binding is one configuration generation. It is never mutated once stored.
type binding struct {
	board     board.Board
	boardName string
	pin       string
	serialize bool
}

// Toggler is the toggle controller. It is safe for concurrent use.
type Toggler struct {
	name     resource.Name
	logger   *slog.Logger
	observer func(Toggled)

	current atomic.Pointer[binding]

	// pin key -> *sync.Mutex, used only when serialize_toggles is set
	locks sync.Map
}

func newToggler(name resource.Name, logger *slog.Logger, opts []Option) *Toggler {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Toggler{
		name:   name,
		logger: logger.With("component", name.Name),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// New constructs a toggler from a validated configuration and its resolved
// dependencies. Construction fails if the first reconfiguration fails.
func New(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger *slog.Logger, opts ...Option) (*Toggler, error) {
	t := newToggler(conf.ResourceName(), logger, opts)
	if err := t.Reconfigure(ctx, deps, conf); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithBoard constructs a toggler bound directly to a board handle,
// bypassing dependency resolution.
func NewWithBoard(name string, b board.Board, pin string, logger *slog.Logger, opts ...Option) (*Toggler, error) {
	if b == nil {
		return nil, newError(ErrCodeDependencyNotFound, "board handle is nil", nil)
	}
	if pin == "" {
		return nil, EmptyValue(AttrPin)
	}
	t := newToggler(resource.NewName(resource.APIGeneric, name), logger, opts)
	t.current.Store(&binding{
		board:     b,
		boardName: b.Name().Name,
		pin:       pin,
	})
	return t, nil
}

// Name implements resource.Resource.
func (t *Toggler) Name() resource.Name {
	return t.name
}

// Reconfigure binds the toggler to the board and pin named in conf. The
// attributes are assumed validated. On failure the previous binding stays in
// place; on success board and pin are replaced together.
func (t *Toggler) Reconfigure(_ context.Context, deps resource.Dependencies, conf resource.Config) error {
	cfg := parseConfig(conf.Attributes)
	boardName := board.Named(cfg.BoardName)

	handle, ok := deps[boardName]
	if !ok || handle == nil {
		return &Error{
			Code:      ErrCodeDependencyNotFound,
			Attribute: AttrBoardName,
			Message:   "board " + boardName.String() + " not found in dependencies",
		}
	}
	b, ok := handle.(board.Board)
	if !ok {
		return &Error{
			Code:      ErrCodeCapabilityMismatch,
			Attribute: AttrBoardName,
			Message:   "dependency " + boardName.String() + " is not a board",
		}
	}

	t.current.Store(&binding{
		board:     b,
		boardName: cfg.BoardName,
		pin:       cfg.Pin,
		serialize: cfg.SerializeToggles,
	})
	t.logger.Info("Toggler configured",
		"board", cfg.BoardName,
		"pin", cfg.Pin,
		"serialize_toggles", cfg.SerializeToggles)
	return nil
}

// Binding returns the currently bound board name and pin.
func (t *Toggler) Binding() (boardName, pin string, ok bool) {
	b := t.current.Load()
	if b == nil {
		return "", "", false
	}
	return b.boardName, b.pin, true
}

// DoCommand runs every recognised command in cmd. Each key of cmd gets a
// result entry, false unless the command was recognised and executed. The
// only recognised command is {"action": "toggle"}. A pin failure fails the
// whole call with no partial result.
func (t *Toggler) DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(cmd))
	for name := range cmd {
		result[name] = false
	}

	for name, args := range cmd {
		if name != CommandAction {
			continue
		}
		if action, ok := args.(string); !ok || action != ActionToggle {
			continue
		}
		if _, err := t.Toggle(ctx); err != nil {
			return nil, err
		}
		result[name] = true
	}
	return result, nil
}

// DoCommandTimeout is DoCommand bounded by timeout. A zero timeout means no
// bound beyond ctx.
func (t *Toggler) DoCommandTimeout(ctx context.Context, cmd map[string]any, timeout time.Duration) (map[string]any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return t.DoCommand(ctx, cmd)
}

// Toggle reads the bound pin and drives it to the opposite level. It returns
// the new level. The level is always re-read; nothing is cached.
func (t *Toggler) Toggle(ctx context.Context) (bool, error) {
	b := t.current.Load()
	if b == nil {
		return false, newError(ErrCodeDependencyNotFound, "toggler is not configured", nil)
	}

	if b.serialize {
		mu := t.pinLock(b.boardName + "/" + b.pin)
		mu.Lock()
		defer mu.Unlock()
	}

	start := time.Now()
	if err := ctx.Err(); err != nil {
		return false, pinError(ctx, "acquire pin", err)
	}

	pin, err := b.board.GPIOPinByName(ctx, b.pin)
	if err != nil {
		return false, pinError(ctx, "acquire pin", err)
	}
	high, err := pin.Get(ctx)
	if err != nil {
		return false, pinError(ctx, "read pin", err)
	}
	if err := pin.Set(ctx, !high); err != nil {
		return false, pinError(ctx, "set pin", err)
	}

	took := time.Since(start)
	t.logger.Debug("Pin toggled",
		"board", b.boardName,
		"pin", b.pin,
		"high", !high,
		"duration", took)

	if t.observer != nil {
		t.observer(Toggled{
			Component: t.name,
			BoardName: b.boardName,
			Pin:       b.pin,
			High:      !high,
			Duration:  took,
		})
	}
	return !high, nil
}

// Geometries is not supported by this component and always fails.
func (t *Toggler) Geometries(_ context.Context, _ map[string]any) ([]Geometry, error) {
	t.logger.Error("`Geometries` is not implemented")
	return nil, newError(ErrCodeNotImplemented, "geometries are not implemented", nil)
}

// Close drops the board binding. Later commands fail until reconfigured.
func (t *Toggler) Close(_ context.Context) error {
	t.current.Store(nil)
	return nil
}

func (t *Toggler) pinLock(key string) *sync.Mutex {
	mu, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// pinError classifies a failure from the board capability.
func pinError(ctx context.Context, step string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return newError(ErrCodeTimeout, step+" did not complete", err)
	case errors.Is(err, board.ErrPinNotFound):
		return newError(ErrCodePinNotFound, step+" failed", err)
	default:
		return newError(ErrCodeIO, step+" failed", err)
	}
}
