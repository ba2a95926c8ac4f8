// Package logging provides structured logging with per-module log levels.
//
// # Usage
//
// Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"toggler": "debug",
//			"api":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("toggler")
//	logger.Info("Toggler configured", "board", "local", "pin", "11")
//
// # Output
//
// Records go to stdout when it is a terminal, pipe, socket or file, to the
// systemd journal when journald is reachable, and always to an in-memory ring
// buffer that the HTTP API serves at /api/logs.
//
//	journalctl -t toggler MODULE=toggler
//	journalctl -t toggler COMPONENT=toggle1 -p err
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	toggler = "debug"
//	runner = "info"
package logging
