package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/toggler/internal/board"
	"github.com/smazurov/toggler/internal/resource"
	"gopkg.in/yaml.v3"
)

// Robot file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ComponentConfig is one [[components]] entry.
type ComponentConfig struct {
	Name       string         `toml:"name" yaml:"name" json:"name"`
	Model      string         `toml:"model" yaml:"model" json:"model"`
	Attributes map[string]any `toml:"attributes" yaml:"attributes" json:"attributes"`
}

// Robot is the set of boards and components a host runs.
type Robot struct {
	Boards     []board.Config    `toml:"boards" yaml:"boards" json:"boards"`
	Components []ComponentConfig `toml:"components" yaml:"components" json:"components"`
}

// FormatFromPath picks the robot file format from the extension. Unknown
// extensions are treated as TOML.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// LoadRobot reads and structurally checks a robot file. Component attributes
// are not validated here; that is the component's job.
func LoadRobot(path string) (*Robot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read robot file: %w", err)
	}
	robot, err := ParseRobot(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return robot, nil
}

// ParseRobot decodes a robot document in the given format.
func ParseRobot(data []byte, format string) (*Robot, error) {
	var robot Robot
	var err error

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&robot)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&robot); errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		err = dec.Decode(&robot)
	default:
		return nil, fmt.Errorf("unsupported robot file format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s robot file: %w", format, err)
	}

	if err := robot.Check(); err != nil {
		return nil, err
	}
	return &robot, nil
}

// Check verifies names are present and unique and models parse.
func (r *Robot) Check() error {
	var errs []error

	boards := make(map[string]bool, len(r.Boards))
	for i, b := range r.Boards {
		switch {
		case b.Name == "":
			errs = append(errs, fmt.Errorf("boards[%d]: name is required", i))
		case boards[b.Name]:
			errs = append(errs, fmt.Errorf("boards[%d]: duplicate board %q", i, b.Name))
		}
		boards[b.Name] = true
	}

	components := make(map[string]bool, len(r.Components))
	for i, c := range r.Components {
		switch {
		case c.Name == "":
			errs = append(errs, fmt.Errorf("components[%d]: name is required", i))
		case components[c.Name]:
			errs = append(errs, fmt.Errorf("components[%d]: duplicate component %q", i, c.Name))
		}
		components[c.Name] = true

		if _, err := resource.ParseModel(c.Model); err != nil {
			errs = append(errs, fmt.Errorf("components[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Board returns the board configuration with the given name.
func (r *Robot) Board(name string) (board.Config, bool) {
	for _, b := range r.Boards {
		if b.Name == name {
			return b, true
		}
	}
	return board.Config{}, false
}

// ResourceConfig converts the entry to the component configuration form. The
// model must already have passed Check.
func (c ComponentConfig) ResourceConfig() resource.Config {
	model, _ := resource.ParseModel(c.Model)
	attrs := make(resource.Attributes, len(c.Attributes))
	for k, v := range c.Attributes {
		attrs[k] = v
	}
	return resource.Config{
		Name:       c.Name,
		API:        resource.APIGeneric,
		Model:      model,
		Attributes: attrs,
	}
}
