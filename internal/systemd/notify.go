// Package systemd reports service state to the systemd manager. Outside a
// systemd unit every call is a no-op.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
	notify func(unsetEnvironment bool, state string) (bool, error)
	// watchdog returns the WatchdogSec interval, 0 when disabled.
	watchdog func(unsetEnvironment bool) (time.Duration, error)
}

// NewNotifier creates a notifier bound to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:   logger,
		notify:   daemon.SdNotify,
		watchdog: daemon.SdWatchdogEnabled,
	}
}

// Ready tells systemd startup is complete.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Reloading tells systemd a configuration reload has begun. Follow it with
// Ready once the reload is applied.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// StartWatchdog pings the watchdog at half the configured interval until ctx
// is done. It returns immediately when the unit has no WatchdogSec.
func (n *Notifier) StartWatchdog(ctx context.Context) {
	interval, err := n.watchdog(false)
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.logger.Debug("Watchdog enabled", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.send(daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
