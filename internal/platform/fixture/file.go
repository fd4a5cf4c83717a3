// Package fixture serves a topology described in a TOML file. It is used for demos, for
// tests, and to reproduce failures: every read can be made to fail with a fail flag.
package fixture

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/audiotopo/internal/platform/wellknown"
	"github.com/smazurov/audiotopo/internal/topology"
)

// File is the on-disk layout of a fixture.
type File struct {
	Devices []DeviceConfig `toml:"device"`
	Parts   []PartConfig   `toml:"part"`
}

// DeviceConfig describes one endpoint.
type DeviceConfig struct {
	ID         string           `toml:"id"`
	Name       string           `toml:"name,omitempty"`
	Flow       string           `toml:"flow"`
	State      string           `toml:"state,omitempty"`
	Connectors []string         `toml:"connectors"`
	Properties []PropertyConfig `toml:"property,omitempty"`
	Fail       []string         `toml:"fail,omitempty"`
}

// PropertyConfig is one property store entry.
type PropertyConfig struct {
	Key         string   `toml:"key"`
	Value       string   `toml:"value"`
	DisplayName string   `toml:"display_name,omitempty"`
	Fail        []string `toml:"fail,omitempty"`
}

// VolumeConfig describes a volume node.
type VolumeConfig struct {
	Levels []float32 `toml:"levels"`
	MinDB  float32   `toml:"min_db"`
	MaxDB  float32   `toml:"max_db"`
	StepDB float32   `toml:"step_db"`
}

// PartConfig describes one topology node. ID is its global id.
type PartConfig struct {
	ID            string        `toml:"id"`
	Name          string        `toml:"name,omitempty"`
	LocalID       uint32        `toml:"local_id,omitempty"`
	SubType       string        `toml:"subtype,omitempty"`
	Type          string        `toml:"type"`
	ConnectorType string        `toml:"connector_type,omitempty"`
	Peer          string        `toml:"peer,omitempty"`
	Incoming      []string      `toml:"incoming,omitempty"`
	Outgoing      []string      `toml:"outgoing,omitempty"`
	Controls      []string      `toml:"controls,omitempty"`
	Volume        *VolumeConfig `toml:"volume,omitempty"`
	Mute          *bool         `toml:"mute,omitempty"`
	Fail          []string      `toml:"fail,omitempty"`
}

// LoadFile reads and validates a fixture file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture data.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids, enum values and that every part reference resolves.
func (f *File) Validate() error {
	parts := make(map[string]*PartConfig, len(f.Parts))
	for i := range f.Parts {
		p := &f.Parts[i]
		if p.ID == "" {
			return fmt.Errorf("part %d: id cannot be empty", i)
		}
		if _, dup := parts[p.ID]; dup {
			return fmt.Errorf("part %s: duplicate id", p.ID)
		}
		parts[p.ID] = p
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))

		var pt topology.PartType
		if err := pt.UnmarshalText([]byte(p.Type)); err != nil {
			return fmt.Errorf("part %s: %w", p.ID, err)
		}
		if _, err := topology.ParseConnectorType(p.ConnectorType); err != nil {
			return fmt.Errorf("part %s: %w", p.ID, err)
		}
		if p.SubType != "" {
			if _, err := uuid.Parse(p.SubType); err != nil {
				return fmt.Errorf("part %s: invalid subtype: %w", p.ID, err)
			}
		}
	}

	for _, p := range f.Parts {
		refs := append(append([]string{}, p.Incoming...), p.Outgoing...)
		if p.Peer != "" {
			refs = append(refs, p.Peer)
		}
		for _, ref := range refs {
			if _, ok := parts[ref]; !ok {
				return fmt.Errorf("part %s: unknown part reference %q", p.ID, ref)
			}
		}
		if p.Peer != "" && parts[p.Peer].Type != "connector" {
			return fmt.Errorf("part %s: peer %q is not a connector", p.ID, p.Peer)
		}
	}

	devices := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if d.ID == "" {
			return fmt.Errorf("device %d: id cannot be empty", i)
		}
		if devices[d.ID] {
			return fmt.Errorf("device %s: duplicate id", d.ID)
		}
		devices[d.ID] = true

		if _, err := parseFlow(d.Flow); err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
		if _, err := parseState(d.State); err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
		for _, ref := range d.Connectors {
			p, ok := parts[ref]
			if !ok {
				return fmt.Errorf("device %s: unknown part reference %q", d.ID, ref)
			}
			if p.Type != "connector" {
				return fmt.Errorf("device %s: top-level part %q is not a connector", d.ID, ref)
			}
		}
		for _, prop := range d.Properties {
			if _, err := topology.ParsePropertyKey(prop.Key); err != nil {
				return fmt.Errorf("device %s: %w", d.ID, err)
			}
		}
	}
	return nil
}

func parseFlow(s string) (topology.DataFlow, error) {
	flow, err := topology.ParseDataFlow(s)
	if err != nil {
		return 0, err
	}
	if flow == topology.All {
		return 0, fmt.Errorf("device flow must be render or capture, got %q", s)
	}
	return flow, nil
}

func parseState(s string) (topology.DeviceState, error) {
	if strings.TrimSpace(s) == "" {
		return topology.StateActive, nil
	}
	return topology.ParseDeviceState(s)
}

// subType returns the configured sub-type, or one derived from the part type.
func (p *PartConfig) subType() uuid.UUID {
	if p.SubType != "" {
		return uuid.MustParse(p.SubType)
	}
	return wellknown.SubType("fixture " + p.Type)
}

// flags turns a fail list into a lookup set.
func flags(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	set := make(map[string]bool, len(list))
	for _, f := range list {
		set[strings.TrimSpace(f)] = true
	}
	return set
}

func indexFlag(name string, index int) string {
	return name + ":" + strconv.Itoa(index)
}
