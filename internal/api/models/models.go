// Package models holds the request and response bodies of the HTTP API.
package models

// HealthData is the body of the health check.
type HealthData struct {
	Status     string `json:"status" example:"ok" doc:"Service status"`
	Message    string `json:"message" example:"API is healthy" doc:"Status message"`
	Generation uint64 `json:"generation" example:"1" doc:"Applied configuration generation"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData describes the running build.
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// ComponentData describes one running component.
type ComponentData struct {
	Name             string  `json:"name" example:"led" doc:"Component name"`
	Model            string  `json:"model" example:"naomi:led-toggle:toggler" doc:"Component model"`
	Board            string  `json:"board" example:"local" doc:"Bound board"`
	Pin              string  `json:"pin" example:"8" doc:"Bound pin"`
	SerializeToggles bool    `json:"serialize_toggles" doc:"Whether toggles of this pin are serialized"`
	Generation       uint64  `json:"generation" example:"1" doc:"Configuration generation"`
	Toggles          uint64  `json:"toggles" example:"12" doc:"Successful toggles since start"`
	Failures         uint64  `json:"failures" example:"0" doc:"Failed commands since start"`
	High             *bool   `json:"high,omitempty" doc:"Pin level after the last toggle, absent until the first toggle"`
	LastToggle       *string `json:"last_toggle,omitempty" example:"2025-01-27T10:30:00Z" doc:"Time of the last toggle"`
}

// ComponentListData is the body of the component list.
type ComponentListData struct {
	Components []ComponentData `json:"components" doc:"Running components"`
	Count      int             `json:"count" example:"1" doc:"Number of components"`
}

// ComponentListResponse wraps ComponentListData.
type ComponentListResponse struct {
	Body ComponentListData
}

// ComponentResponse wraps ComponentData.
type ComponentResponse struct {
	Body ComponentData
}

// DoCommandRequest sends a generic command to a component.
type DoCommandRequest struct {
	Name string `path:"name" example:"led" doc:"Component name"`
	Body struct {
		Command   map[string]any `json:"command" doc:"Command record, e.g. {\"action\": \"toggle\"}"`
		TimeoutMs int            `json:"timeout_ms,omitempty" minimum:"0" maximum:"600000" example:"500" doc:"Per-call timeout in milliseconds; 0 uses the server default"`
	}
}

// DoCommandData is the per-key result of a command.
type DoCommandData struct {
	Result map[string]any `json:"result" doc:"One entry per command key, true if the command ran"`
}

// DoCommandResponse wraps DoCommandData.
type DoCommandResponse struct {
	Body DoCommandData
}

// ComponentPathInput selects a component by name.
type ComponentPathInput struct {
	Name string `path:"name" example:"led" doc:"Component name"`
}

// LogsRequest selects recent log entries.
type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"10000" default:"200" doc:"Maximum entries to return, newest last"`
	Module string `query:"module" example:"toggler" doc:"Only entries from this module"`
}

// LogEntryData is one buffered log line.
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"toggler" doc:"Module that logged"`
	Message    string         `json:"message" example:"Pin toggled" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// LogsData is the body of the log listing.
type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log entries in chronological order"`
	Count   int            `json:"count" example:"1" doc:"Number of entries"`
}

// LogsResponse wraps LogsData.
type LogsResponse struct {
	Body LogsData
}

// LogLevelRequest changes a module's log level at runtime.
type LogLevelRequest struct {
	Module string `path:"module" example:"toggler" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}
