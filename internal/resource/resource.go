// Package resource defines the naming and configuration types shared by
// boards, components and the runner that wires them together.
package resource

import (
	"context"
	"fmt"
	"strings"
)

// API identifies a resource interface, e.g. rdk:component:board.
type API struct {
	Namespace string
	Type      string
	Subtype   string
}

// String returns the colon separated triplet.
func (a API) String() string {
	return a.Namespace + ":" + a.Type + ":" + a.Subtype
}

// Well-known APIs.
var (
	APIBoard   = API{Namespace: "rdk", Type: "component", Subtype: "board"}
	APIGeneric = API{Namespace: "rdk", Type: "component", Subtype: "generic"}
)

// Name is the dependency identifier of a resource. It is comparable and is
// used as the key of a Dependencies map.
type Name struct {
	API  API
	Name string
}

// NewName creates a name for the given API.
func NewName(api API, name string) Name {
	return Name{API: api, Name: name}
}

// String returns e.g. rdk:component:board/local.
func (n Name) String() string {
	return n.API.String() + "/" + n.Name
}

// Model identifies a component implementation, e.g. naomi:led-toggle:toggler.
type Model struct {
	Namespace string
	Family    string
	Name      string
}

// String returns the colon separated triplet.
func (m Model) String() string {
	return m.Namespace + ":" + m.Family + ":" + m.Name
}

// ParseModel parses a namespace:family:name triplet.
func ParseModel(s string) (Model, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Model{}, fmt.Errorf("invalid model %q: want namespace:family:name", s)
	}
	for _, p := range parts {
		if p == "" {
			return Model{}, fmt.Errorf("invalid model %q: empty segment", s)
		}
	}
	return Model{Namespace: parts[0], Family: parts[1], Name: parts[2]}, nil
}

// Attributes is the flat attribute record of a component configuration.
// Values keep whatever type the configuration decoder produced.
type Attributes map[string]any

// Config is the configuration of a single component.
type Config struct {
	Name       string
	API        API
	Model      Model
	Attributes Attributes
	DependsOn  []string
}

// ResourceName returns the dependency identifier of the configured component.
func (c Config) ResourceName() Name {
	return NewName(c.API, c.Name)
}

// Dependencies maps dependency identifiers to resolved handles. Handles are
// opaque; consumers narrow them to the capability they need.
type Dependencies map[Name]any

// Resource is the minimum surface every component exposes.
type Resource interface {
	Name() Name
	DoCommand(ctx context.Context, cmd map[string]any) (map[string]any, error)
	Close(ctx context.Context) error
}
