package topology

import (
	"context"

	"github.com/google/uuid"
)

// Catalog enumerates the audio endpoints of the host.
type Catalog interface {
	// Devices returns the endpoints whose data flow matches flow (All matches every
	// endpoint) and whose state is in stateMask, in platform order.
	Devices(ctx context.Context, flow DataFlow, stateMask DeviceState) ([]Device, error)
}

// Reentrant is implemented by catalogs whose devices may be walked concurrently.
type Reentrant interface {
	Reentrant() bool
}

// Device is one audio endpoint.
type Device interface {
	ID() string
	DataFlow() (DataFlow, error)
	State() (DeviceState, error)
	OpenTopology(ctx context.Context) (Topology, error)
	OpenPropertyStore(ctx context.Context) (PropertyStore, error)
}

// Topology is the routing graph handle of a device.
type Topology interface {
	ConnectorCount() (int, error)
	ConnectorAt(index int) (Connector, error)
}

// Part is a node of a topology.
type Part interface {
	Name() (string, error)
	GlobalID() (string, error)
	LocalID() (uint32, error)
	SubType() (uuid.UUID, error)
	PartType() (PartType, error)
	ControlInterfaceCount() (int, error)
	ControlInterfaceAt(index int) (ControlInterface, error)
	// IncomingParts returns the parts feeding this part, or ErrNoParts.
	IncomingParts() (PartList, error)
	// OutgoingParts returns the parts this part feeds, or ErrNoParts.
	OutgoingParts() (PartList, error)
}

// PartList is an indexed list of parts.
type PartList interface {
	Count() (int, error)
	At(index int) (Part, error)
}

// Connector is a part that terminates a path. Parts whose type is PartConnector are
// expected to implement it.
type Connector interface {
	Part
	Kind() (ConnectorType, error)
	// ConnectedTo returns the peer connector, or ErrNotConnected.
	ConnectedTo() (Connector, error)
}

// ControlActivator is implemented by parts that can expose volume and mute controls.
// Both methods return ErrNoInterface when the part is not that kind of node.
type ControlActivator interface {
	VolumeLevel() (VolumeLevel, error)
	Mute() (MuteControl, error)
}

// VolumeLevel is a per-channel volume control.
type VolumeLevel interface {
	ChannelCount() (int, error)
	LevelRange(channel int) (minDB, maxDB, stepDB float32, err error)
	Level(channel int) (float32, error)
}

// MuteControl is a mute switch.
type MuteControl interface {
	Muted() (bool, error)
}

// PropertyStore is the flat metadata table of a device.
type PropertyStore interface {
	Count() (int, error)
	KeyAt(index int) (PropertyKey, error)
	ValueText(key PropertyKey) (string, error)
	// DisplayName returns the human-readable name of key, or ErrNoDescription.
	DisplayName(key PropertyKey) (string, error)
	// Description returns the schema description of key, or ErrNoDescription.
	Description(key PropertyKey) (*DescriptionRecord, error)
}
