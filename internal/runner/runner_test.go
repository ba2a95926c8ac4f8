package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/toggler/internal/board"
	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/toggler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func eventsOf[T events.Event](r *recorder) []T {
	var out []T
	for _, ev := range r.all() {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// simFactory builds sim boards and remembers them by name.
type simFactory struct {
	mu    sync.Mutex
	sims  map[string]*board.Sim
	calls int
	fail  error
}

func newSimFactory() *simFactory {
	return &simFactory{sims: make(map[string]*board.Sim)}
}

func (f *simFactory) build(conf board.Config, _ *slog.Logger) (board.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	s := board.NewSim(conf.Name, conf.Initial, time.Duration(conf.LatencyMs)*time.Millisecond)
	f.sims[conf.Name] = s
	return s, nil
}

func (f *simFactory) sim(name string) *board.Sim {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sims[name]
}

func robotWith(boards []board.Config, components ...config.ComponentConfig) *config.Robot {
	return &config.Robot{Boards: boards, Components: components}
}

func simBoard(name string, pins ...string) board.Config {
	initial := make(map[string]bool, len(pins))
	for _, p := range pins {
		initial[p] = false
	}
	return board.Config{Name: name, Type: board.TypeSim, Initial: initial}
}

func togglerConf(name, boardName, pin string) config.ComponentConfig {
	return config.ComponentConfig{
		Name:       name,
		Model:      toggler.Model.String(),
		Attributes: map[string]any{"board_name": boardName, "pin": pin},
	}
}

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *simFactory, *recorder) {
	t.Helper()
	f := newSimFactory()
	rec := &recorder{}
	r := New(rec, testLogger(), append([]Option{WithBoardFactory(f.build)}, opts...)...)
	t.Cleanup(func() { r.Close(context.Background()) })
	return r, f, rec
}

func TestApply_CreatesComponents(t *testing.T) {
	r, _, rec := newTestRunner(t)

	robot := robotWith(
		[]board.Config{simBoard("local", "8", "10")},
		togglerConf("b-led", "local", "10"),
		togglerConf("a-led", "local", "8"),
	)
	if err := r.Apply(context.Background(), robot); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	list := r.Components()
	if len(list) != 2 || list[0].Name != "a-led" || list[1].Name != "b-led" {
		t.Fatalf("Components() = %+v, want a-led, b-led", list)
	}

	info, ok := r.Component("a-led")
	if !ok {
		t.Fatal("Component(a-led) not found")
	}
	want := ComponentInfo{Name: "a-led", Model: "naomi:led-toggle:toggler", Board: "local", Pin: "8", Generation: 1}
	if info != want {
		t.Errorf("Component() = %+v, want %+v", info, want)
	}

	if r.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", r.Generation())
	}

	created := eventsOf[events.ComponentReconfiguredEvent](rec)
	if len(created) != 2 {
		t.Fatalf("got %d reconfigured events, want 2", len(created))
	}
	for _, ev := range created {
		if ev.Action != "created" || ev.Generation != 1 || ev.Timestamp == "" {
			t.Errorf("event = %+v", ev)
		}
	}
}

func TestDoCommand_TogglesAndPublishes(t *testing.T) {
	r, f, rec := newTestRunner(t)
	robot := robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "8"))
	if err := r.Apply(context.Background(), robot); err != nil {
		t.Fatal(err)
	}

	result, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0)
	if err != nil {
		t.Fatalf("DoCommand() error = %v", err)
	}
	if result["action"] != true {
		t.Errorf("result = %v, want action=true", result)
	}
	if high, _ := f.sim("local").Level("8"); !high {
		t.Error("pin 8 should be high after toggle")
	}

	toggled := eventsOf[events.PinToggledEvent](rec)
	if len(toggled) != 1 {
		t.Fatalf("got %d toggle events, want 1", len(toggled))
	}
	if ev := toggled[0]; ev.Component != "led" || ev.Board != "local" || ev.Pin != "8" || !ev.High {
		t.Errorf("toggle event = %+v", ev)
	}
}

func TestDoCommand_UnknownComponent(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_, err := r.DoCommand(context.Background(), "ghost", map[string]any{"action": "toggle"}, 0)
	if !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("error = %v, want ErrComponentNotFound", err)
	}
	if _, err := r.Geometries(context.Background(), "ghost"); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("Geometries error = %v, want ErrComponentNotFound", err)
	}
}

func TestDoCommand_FailurePublishesCode(t *testing.T) {
	r, _, rec := newTestRunner(t)
	// the board exists but has no pin 99
	robot := robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "99"))
	if err := r.Apply(context.Background(), robot); err != nil {
		t.Fatal(err)
	}

	_, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0)
	if toggler.CodeOf(err) != toggler.ErrCodePinNotFound {
		t.Fatalf("error = %v, want PIN_NOT_FOUND", err)
	}

	failed := eventsOf[events.CommandFailedEvent](rec)
	if len(failed) != 1 || failed[0].Code != toggler.ErrCodePinNotFound || failed[0].Component != "led" {
		t.Errorf("failed events = %+v", failed)
	}
}

func TestDoCommand_DefaultTimeout(t *testing.T) {
	r, _, _ := newTestRunner(t, WithDefaultTimeout(20*time.Millisecond))
	slow := simBoard("slow", "8")
	slow.LatencyMs = 500
	if err := r.Apply(context.Background(), robotWith([]board.Config{slow}, togglerConf("led", "slow", "8"))); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0)
	if !errors.Is(err, toggler.ErrTimeout) {
		t.Fatalf("error = %v, want TIMEOUT", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("DoCommand took %v, default timeout not applied", elapsed)
	}
}

func TestApply_InvalidKeepsGeneration(t *testing.T) {
	valid := robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "8"))

	tests := []struct {
		name  string
		robot *config.Robot
		check func(error) bool
	}{
		{
			name:  "missing pin",
			robot: robotWith([]board.Config{simBoard("local")}, config.ComponentConfig{Name: "led", Model: toggler.Model.String(), Attributes: map[string]any{"board_name": "local"}}),
			check: func(err error) bool { return errors.Is(err, toggler.ErrMissingAttribute) },
		},
		{
			name:  "undeclared board",
			robot: robotWith(nil, togglerConf("led", "elsewhere", "8")),
			check: func(err error) bool { return errors.Is(err, toggler.ErrDependencyNotFound) },
		},
		{
			name:  "unsupported model",
			robot: robotWith(nil, config.ComponentConfig{Name: "cam", Model: "acme:camera:webcam"}),
			check: func(err error) bool { return errors.Is(err, ErrUnsupportedModel) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f, _ := newTestRunner(t)
			if err := r.Apply(context.Background(), valid); err != nil {
				t.Fatal(err)
			}

			err := r.Apply(context.Background(), tt.robot)
			if err == nil || !tt.check(err) {
				t.Fatalf("Apply() error = %v", err)
			}
			if r.Generation() != 1 {
				t.Errorf("Generation() = %d, want 1", r.Generation())
			}
			if _, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0); err != nil {
				t.Errorf("previous generation broken: %v", err)
			}
			if f.calls != 1 {
				t.Errorf("board factory called %d times, want 1", f.calls)
			}
		})
	}
}

func TestApply_BoardFailureKeepsGeneration(t *testing.T) {
	r, f, _ := newTestRunner(t)
	if err := r.Apply(context.Background(), robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "8"))); err != nil {
		t.Fatal(err)
	}

	f.fail = errors.New("no gpio chip")
	changed := simBoard("local", "8", "10")
	if err := r.Apply(context.Background(), robotWith([]board.Config{changed}, togglerConf("led", "local", "10"))); err == nil {
		t.Fatal("Apply() error = nil, want board failure")
	}

	info, _ := r.Component("led")
	if info.Pin != "8" || info.Generation != 1 {
		t.Errorf("component = %+v, want previous binding", info)
	}
}

func TestApply_ReusesUnchangedBoards(t *testing.T) {
	r, f, rec := newTestRunner(t)
	boards := []board.Config{simBoard("local", "8", "10")}

	if err := r.Apply(context.Background(), robotWith(boards, togglerConf("led", "local", "8"))); err != nil {
		t.Fatal(err)
	}
	if _, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0); err != nil {
		t.Fatal(err)
	}

	if err := r.Apply(context.Background(), robotWith(boards, togglerConf("led", "local", "10"))); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("board factory called %d times, want 1", f.calls)
	}
	// pin 8 state survives because the board was reused
	if high, _ := f.sim("local").Level("8"); !high {
		t.Error("pin 8 lost its level across apply")
	}

	info, _ := r.Component("led")
	if info.Pin != "10" || info.Generation != 2 {
		t.Errorf("component = %+v, want pin 10 at generation 2", info)
	}

	reconf := eventsOf[events.ComponentReconfiguredEvent](rec)
	if last := reconf[len(reconf)-1]; last.Action != "reconfigured" || last.Pin != "10" {
		t.Errorf("last event = %+v", last)
	}
}

func TestApply_RemovesComponents(t *testing.T) {
	r, _, rec := newTestRunner(t)
	boards := []board.Config{simBoard("local", "8", "10")}

	if err := r.Apply(context.Background(), robotWith(boards, togglerConf("a", "local", "8"), togglerConf("b", "local", "10"))); err != nil {
		t.Fatal(err)
	}
	if err := r.Apply(context.Background(), robotWith(boards, togglerConf("a", "local", "8"))); err != nil {
		t.Fatal(err)
	}

	if _, ok := r.Component("b"); ok {
		t.Error("component b still present")
	}
	if _, err := r.DoCommand(context.Background(), "b", map[string]any{"action": "toggle"}, 0); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("DoCommand(b) error = %v, want ErrComponentNotFound", err)
	}

	removed := eventsOf[events.ComponentRemovedEvent](rec)
	if len(removed) != 1 || removed[0].Component != "b" {
		t.Errorf("removed events = %+v", removed)
	}
}

func TestApply_ConcurrentCommands(t *testing.T) {
	r, _, _ := newTestRunner(t)
	boards := []board.Config{simBoard("local", "8", "10")}
	if err := r.Apply(context.Background(), robotWith(boards, togglerConf("led", "local", "8"))); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%50 == 0 {
				pin := []string{"8", "10"}[i/50%2]
				if err := r.Apply(context.Background(), robotWith(boards, togglerConf("led", "local", pin))); err != nil {
					errs <- err
				}
				return
			}
			if _, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, 0); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGeometries(t *testing.T) {
	r, _, _ := newTestRunner(t)
	if err := r.Apply(context.Background(), robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "8"))); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Geometries(context.Background(), "led"); !errors.Is(err, toggler.ErrNotImplemented) {
		t.Errorf("Geometries() error = %v, want NOT_IMPLEMENTED", err)
	}
}

func TestClose(t *testing.T) {
	r, _, _ := newTestRunner(t)
	if err := r.Apply(context.Background(), robotWith([]board.Config{simBoard("local", "8")}, togglerConf("led", "local", "8"))); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(r.Components()) != 0 {
		t.Error("components survived Close")
	}
}

func TestNew_DefaultFactoryBuildsSim(t *testing.T) {
	r := New(nil, testLogger())
	defer r.Close(context.Background())

	robot := robotWith([]board.Config{{Name: "local", Type: board.TypeSim, Initial: map[string]bool{"8": true}}}, togglerConf("led", "local", "8"))
	if err := r.Apply(context.Background(), robot); err != nil {
		t.Fatal(err)
	}
	if _, err := r.DoCommand(context.Background(), "led", map[string]any{"action": "toggle"}, time.Second); err != nil {
		t.Errorf("DoCommand() error = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func robotFile(components ...string) string {
	s := "[[boards]]\nname = \"local\"\ntype = \"sim\"\n[boards.initial]\n\"8\" = false\n\"10\" = false\n"
	for i, pin := range components {
		s += fmt.Sprintf("\n[[components]]\nname = \"led%d\"\nmodel = \"naomi:led-toggle:toggler\"\n[components.attributes]\nboard_name = \"local\"\npin = %q\n", i, pin)
	}
	return s
}

func TestWatch_AppliesChanges(t *testing.T) {
	r, _, rec := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "robot.toml")
	if err := os.WriteFile(path, []byte(robotFile("8")), 0o644); err != nil {
		t.Fatal(err)
	}

	robot, err := config.LoadRobot(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Apply(context.Background(), robot); err != nil {
		t.Fatal(err)
	}

	w, err := r.Watch(context.Background(), path, 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(robotFile("8", "10")), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second component", func() bool { return len(r.Components()) == 2 })
	gen := r.Generation()

	// invalid attribute: rejected, generation unchanged
	if err := os.WriteFile(path, []byte(robotFile("")), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reload failure", func() bool { return len(eventsOf[events.ConfigReloadFailedEvent](rec)) > 0 })
	if r.Generation() != gen {
		t.Errorf("Generation() = %d, want %d", r.Generation(), gen)
	}
	if len(r.Components()) != 2 {
		t.Errorf("components = %+v, want previous two", r.Components())
	}
}
