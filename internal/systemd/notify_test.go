package systemd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

type recorder struct {
	mu     sync.Mutex
	states []string
	err    error
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return r.err == nil, r.err
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func newTestNotifier(rec *recorder, interval time.Duration, watchdogErr error) *Notifier {
	n := NewNotifier(nil)
	n.notify = rec.notify
	n.watchdog = func(bool) (time.Duration, error) { return interval, watchdogErr }
	return n
}

func TestLifecycleStates(t *testing.T) {
	rec := &recorder{}
	n := newTestNotifier(rec, 0, nil)

	n.Ready()
	n.Reloading()
	n.Status("2 components")
	n.Stopping()

	want := []string{daemon.SdNotifyReady, daemon.SdNotifyReloading, "STATUS=2 components", daemon.SdNotifyStopping}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, rec.states[i], want[i])
		}
	}
}

func TestNotifyErrorIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("socket gone")}
	n := newTestNotifier(rec, 0, nil)
	n.Ready()
	if rec.count(daemon.SdNotifyReady) != 1 {
		t.Error("Ready was not attempted")
	}
}

func TestWatchdog(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		err      error
		wantPing bool
	}{
		{"enabled", 20 * time.Millisecond, nil, true},
		{"disabled", 0, nil, false},
		{"error", 20 * time.Millisecond, errors.New("bad WATCHDOG_USEC"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			n := newTestNotifier(rec, tt.interval, tt.err)

			ctx, cancel := context.WithCancel(context.Background())
			n.StartWatchdog(ctx)
			time.Sleep(100 * time.Millisecond)
			cancel()

			pinged := rec.count(daemon.SdNotifyWatchdog) > 0
			if pinged != tt.wantPing {
				t.Errorf("pinged = %v, want %v", pinged, tt.wantPing)
			}
		})
	}
}
