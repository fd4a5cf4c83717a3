package topology

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DataFlow is the direction audio moves through an endpoint.
type DataFlow int

// DataFlow values.
const (
	Render DataFlow = iota
	Capture
	All
)

func (f DataFlow) String() string {
	switch f {
	case Render:
		return "render"
	case Capture:
		return "capture"
	case All:
		return "all"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f DataFlow) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *DataFlow) UnmarshalText(text []byte) error {
	parsed, err := ParseDataFlow(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseDataFlow parses "render", "capture" or "all" (case-insensitive).
func ParseDataFlow(s string) (DataFlow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "render", "playback", "output":
		return Render, nil
	case "capture", "input":
		return Capture, nil
	case "all", "":
		return All, nil
	default:
		return All, fmt.Errorf("unknown data flow %q", s)
	}
}

// DeviceState is a bit mask of endpoint lifecycle states.
type DeviceState uint32

// Device states. Values match the platform's DEVICE_STATE_* bits.
const (
	StateActive     DeviceState = 0x1
	StateDisabled   DeviceState = 0x2
	StateNotPresent DeviceState = 0x4
	StateUnplugged  DeviceState = 0x8
	StateMaskAll    DeviceState = 0xF
)

var stateNames = []struct {
	state DeviceState
	name  string
}{
	{StateActive, "active"},
	{StateDisabled, "disabled"},
	{StateNotPresent, "notpresent"},
	{StateUnplugged, "unplugged"},
}

func (s DeviceState) String() string {
	if s == 0 {
		return "unknown"
	}
	if s == StateMaskAll {
		return "all"
	}
	var names []string
	for _, sn := range stateNames {
		if s&sn.state != 0 {
			names = append(names, sn.name)
		}
	}
	if rest := s &^ StateMaskAll; rest != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(names, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (s DeviceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DeviceState) UnmarshalText(text []byte) error {
	parsed, err := ParseDeviceState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Has reports whether every bit of other is set in s.
func (s DeviceState) Has(other DeviceState) bool {
	return other != 0 && s&other == other
}

// ParseDeviceState parses a comma-separated list of state names, or "all".
func ParseDeviceState(s string) (DeviceState, error) {
	var mask DeviceState
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == "all" {
			mask |= StateMaskAll
			continue
		}
		found := false
		for _, sn := range stateNames {
			if sn.name == part || strings.ReplaceAll(sn.name, "_", "") == strings.ReplaceAll(part, "_", "") {
				mask |= sn.state
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown device state %q", part)
		}
	}
	if mask == 0 {
		return 0, fmt.Errorf("empty device state mask %q", s)
	}
	return mask, nil
}

// PartType is the structural type tag of a topology node.
type PartType int

// PartType values.
const (
	PartConnector PartType = iota
	PartSubunit
)

func (t PartType) String() string {
	switch t {
	case PartConnector:
		return "connector"
	case PartSubunit:
		return "subunit"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t PartType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PartType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "connector":
		*t = PartConnector
	case "subunit":
		*t = PartSubunit
	default:
		return fmt.Errorf("unknown part type %q", text)
	}
	return nil
}

// ConnectorType is the kind of a connector.
type ConnectorType int

// ConnectorType values.
const (
	ConnectorUnknown ConnectorType = iota
	PhysicalInternal
	PhysicalExternal
	SoftwareIO
	SoftwareFixed
	Network
)

var connectorNames = map[ConnectorType]string{
	ConnectorUnknown: "unknown",
	PhysicalInternal: "physical_internal",
	PhysicalExternal: "physical_external",
	SoftwareIO:       "software_io",
	SoftwareFixed:    "software_fixed",
	Network:          "network",
}

func (c ConnectorType) String() string {
	if name, ok := connectorNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (c ConnectorType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ConnectorType) UnmarshalText(text []byte) error {
	parsed, err := ParseConnectorType(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseConnectorType parses the text form of a connector type.
func ParseConnectorType(s string) (ConnectorType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ConnectorUnknown, nil
	}
	for ct, name := range connectorNames {
		if name == s {
			return ct, nil
		}
	}
	return ConnectorUnknown, fmt.Errorf("unknown connector type %q", s)
}

// PropertyKey identifies a property: a property set id plus a property id within the set.
type PropertyKey struct {
	Set uuid.UUID
	ID  uint32
}

func (k PropertyKey) String() string {
	return "{" + k.Set.String() + "} " + strconv.FormatUint(uint64(k.ID), 10)
}

// MarshalText implements encoding.TextMarshaler.
func (k PropertyKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PropertyKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePropertyKey parses "{set-uuid} id". The braces are optional.
func ParsePropertyKey(s string) (PropertyKey, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return PropertyKey{}, fmt.Errorf("invalid property key %q", s)
	}
	set, err := uuid.Parse(strings.Trim(fields[0], "{}"))
	if err != nil {
		return PropertyKey{}, fmt.Errorf("invalid property set in %q: %w", s, err)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return PropertyKey{}, fmt.Errorf("invalid property id in %q: %w", s, err)
	}
	return PropertyKey{Set: set, ID: uint32(id)}, nil
}

// DescriptionRecord is the structured schema description of a property key.
type DescriptionRecord struct {
	CanonicalName string `json:"canonical_name" yaml:"canonical_name"`
	DisplayName   string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	TypeName      string `json:"type_name,omitempty" yaml:"type_name,omitempty"`
}

// PropertyEntry is one metadatum of a device. Values are always rendered as text.
type PropertyEntry struct {
	Key         PropertyKey        `json:"key" yaml:"key"`
	DisplayName string             `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Value       string             `json:"value" yaml:"value"`
	Description *DescriptionRecord `json:"description,omitempty" yaml:"description,omitempty"`
}

// ControlInterface describes one control attached to a part.
type ControlInterface struct {
	IID  uuid.UUID `json:"iid" yaml:"iid"`
	Name string    `json:"name" yaml:"name"`
}

// ChannelLevel is the volume state of one channel of a volume node, in dB.
type ChannelLevel struct {
	Channel int     `json:"channel" yaml:"channel"`
	LevelDB float32 `json:"level_db" yaml:"level_db"`
	MinDB   float32 `json:"min_db" yaml:"min_db"`
	MaxDB   float32 `json:"max_db" yaml:"max_db"`
	StepDB  float32 `json:"step_db" yaml:"step_db"`
}

// VolumeInfo is the state of a volume node.
type VolumeInfo struct {
	Channels []ChannelLevel `json:"channels" yaml:"channels"`
}

// NodeInfo is the descriptor of one topology node.
type NodeInfo struct {
	Name              string             `json:"name" yaml:"name"`
	GlobalID          string             `json:"global_id" yaml:"global_id"`
	LocalID           uint32             `json:"local_id" yaml:"local_id"`
	SubType           uuid.UUID          `json:"sub_type" yaml:"sub_type"`
	PartType          PartType           `json:"part_type" yaml:"part_type"`
	ControlInterfaces []ControlInterface `json:"control_interfaces,omitempty" yaml:"control_interfaces,omitempty"`
	Volume            *VolumeInfo        `json:"volume,omitempty" yaml:"volume,omitempty"`
	Muted             *bool              `json:"muted,omitempty" yaml:"muted,omitempty"`
}

// PeerInfo identifies the connector a connector is wired to.
type PeerInfo struct {
	Name     string `json:"name" yaml:"name"`
	GlobalID string `json:"global_id" yaml:"global_id"`
}

// ConnectorInfo is attached to nodes that are connectors. A nil Peer means unconnected.
type ConnectorInfo struct {
	Kind ConnectorType `json:"kind" yaml:"kind"`
	Peer *PeerInfo     `json:"peer,omitempty" yaml:"peer,omitempty"`
}
