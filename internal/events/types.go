package events

// Event type constants for kelindar/event.
const (
	TypePinToggled uint32 = iota + 1
	TypeCommandFailed
	TypeComponentReconfigured
	TypeComponentRemoved
	TypeConfigReloadFailed
	TypeComponentStats
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PinToggledEvent is published after a toggler flips its pin.
type PinToggledEvent struct {
	Component  string `json:"component" example:"toggle1" doc:"Component name"`
	Board      string `json:"board" example:"local" doc:"Board name"`
	Pin        string `json:"pin" example:"11" doc:"Pin name"`
	High       bool   `json:"high" example:"true" doc:"Pin level after the toggle"`
	DurationUs int64  `json:"duration_us" example:"180" doc:"Time spent on pin I/O in microseconds"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PinToggledEvent.
func (e PinToggledEvent) Type() uint32 { return TypePinToggled }

// CommandFailedEvent is published when DoCommand returns an error.
type CommandFailedEvent struct {
	Component string `json:"component" example:"toggle1" doc:"Component name"`
	Code      string `json:"code" example:"PIN_NOT_FOUND" doc:"Error code"`
	Error     string `json:"error" doc:"Error message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CommandFailedEvent.
func (e CommandFailedEvent) Type() uint32 { return TypeCommandFailed }

// ComponentReconfiguredEvent is published when a component is created or
// rebound to a new configuration generation.
type ComponentReconfiguredEvent struct {
	Component  string `json:"component" example:"toggle1" doc:"Component name"`
	Board      string `json:"board" example:"local" doc:"Board name"`
	Pin        string `json:"pin" example:"11" doc:"Pin name"`
	Generation uint64 `json:"generation" example:"3" doc:"Configuration generation"`
	Action     string `json:"action" example:"created" doc:"created or reconfigured"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ComponentReconfiguredEvent.
func (e ComponentReconfiguredEvent) Type() uint32 { return TypeComponentReconfigured }

// ComponentRemovedEvent is published when a component disappears from the
// configuration and is closed.
type ComponentRemovedEvent struct {
	Component string `json:"component" example:"toggle1" doc:"Component name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ComponentRemovedEvent.
func (e ComponentRemovedEvent) Type() uint32 { return TypeComponentRemoved }

// ConfigReloadFailedEvent is published when a changed configuration file is
// rejected; the previous generation stays active.
type ConfigReloadFailedEvent struct {
	Path      string `json:"path" example:"components.toml" doc:"Configuration file"`
	Error     string `json:"error" doc:"Validation or load error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConfigReloadFailedEvent.
func (e ConfigReloadFailedEvent) Type() uint32 { return TypeConfigReloadFailed }

// ComponentStatsEvent is a periodic per-component summary for live views.
type ComponentStatsEvent struct {
	Component string `json:"component" example:"toggle1" doc:"Component name"`
	Toggles   string `json:"toggles" example:"12" doc:"Successful toggles since start"`
	Failures  string `json:"failures" example:"0" doc:"Failed commands since start"`
	High      bool   `json:"high" example:"false" doc:"Last known pin level"`
}

// Type returns the event type identifier for ComponentStatsEvent.
func (e ComponentStatsEvent) Type() uint32 { return TypeComponentStats }

// LogEntryEvent carries one log line to live log viewers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"toggler" doc:"Module that logged"`
	Message    string         `json:"message" example:"Pin toggled" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
