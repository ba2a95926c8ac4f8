package board

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Closer is implemented by backends that hold resources.
type Closer interface {
	Close(ctx context.Context) error
}

// New creates a board backend from its configuration. TypeAuto picks a
// backend from the device tree model and falls back to a sim board.
func New(conf Config, logger *slog.Logger) (Board, error) {
	if conf.Name == "" {
		return nil, fmt.Errorf("board name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	boardType := strings.ToLower(conf.Type)
	if boardType == "" || boardType == TypeAuto {
		boardType = detectType(detectBoard())
		logger.Info("Detected board backend", "board", conf.Name, "type", boardType)
	}

	switch boardType {
	case TypeSim:
		initial := make(map[string]bool, len(conf.Initial)+len(conf.Pins))
		for pin := range conf.Pins {
			initial[pin] = false
		}
		for pin, level := range conf.Initial {
			initial[pin] = level
		}
		return NewSim(conf.Name, initial, time.Duration(conf.LatencyMs)*time.Millisecond), nil
	case TypeSysfs:
		return newSysfs(conf), nil
	case TypePeriph:
		return newPeriph(conf)
	default:
		return nil, fmt.Errorf("unknown board type %q", conf.Type)
	}
}

// detectType maps a device tree model to a backend.
func detectType(model string) string {
	switch {
	case strings.Contains(model, "Raspberry Pi"):
		return TypePeriph
	case strings.Contains(model, "NanoPC-T6"), strings.Contains(model, "Orange Pi"):
		return TypeSysfs
	default:
		return TypeSim
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
