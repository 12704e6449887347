// Package module provides module descriptor value types and pure
// validation functions. This package has NO dependencies on I/O or
// external packages.
package module

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/patchbay/domain/signal"
)

// Port is a typed connection point on a module.
type Port struct {
	// ID is unique within the module.
	ID string
	// Label is the human-readable name.
	Label string
	// DataType is the kind of data this port handles. Ports declare
	// the expected signal shape; they do not enforce it at the type
	// level.
	DataType signal.DataType
	// Direction states whether the port receives or emits data.
	Direction signal.PortDirection
}

// Schema is the static descriptor of a module's capabilities.
type Schema struct {
	// ID is stable and unique across the process lifetime. It must
	// match the id used when routing.
	ID          string
	Name        string
	Description string
	// Ports are ordered as declared by the module.
	Ports []Port
	// SettingsSchema is an optional JSON Schema for the settings UI.
	SettingsSchema json.RawMessage
}

// Port returns the port with the given id, if declared.
func (s Schema) Port(id string) (Port, bool) {
	for _, p := range s.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}

// Validate checks structural invariants of a schema.
func (s Schema) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("schema: missing id")
	}
	seen := make(map[string]bool, len(s.Ports))
	for _, p := range s.Ports {
		if p.ID == "" {
			return fmt.Errorf("schema %s: port with empty id", s.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("schema %s: duplicate port %q", s.ID, p.ID)
		}
		seen[p.ID] = true
		if p.Direction != signal.DirectionInput && p.Direction != signal.DirectionOutput {
			return fmt.Errorf("schema %s: port %q has invalid direction %q", s.ID, p.ID, p.Direction)
		}
	}
	return nil
}

// Manifest is the plugin metadata declared by a shared library.
type Manifest struct {
	Name        string
	Version     string
	Description string
	Author      string
	ABIVersion  uint32
}

// Patch connects an output port on one module to an input port on
// another.
type Patch struct {
	ID           string
	SourceModule string
	SourcePort   string
	SinkModule   string
	SinkPort     string
}

// Compatible reports whether data of type out may flow into a port of
// type in. TypeAny matches everything on either side.
func Compatible(out, in signal.DataType) bool {
	if out == signal.TypeAny || in == signal.TypeAny {
		return true
	}
	return out == in
}

// PluginRecord is the registry row for a discovered plugin file.
type PluginRecord struct {
	Path       string
	SHA256     string
	Name       string
	Version    string
	ABIVersion uint32
	Verified   bool
	Enabled    bool
	LoadedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
