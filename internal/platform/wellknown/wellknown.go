// Package wellknown holds the property keys, control-interface ids and sub-type ids shared
// by the platform backends.
package wellknown

import (
	"github.com/google/uuid"

	"github.com/smazurov/audiotopo/internal/topology"
)

// Property sets.
var (
	DeviceSet    = uuid.MustParse("a45c254e-df1c-4efd-8020-67d146a850e0")
	InterfaceSet = uuid.MustParse("026e516e-b814-414b-83cd-856d6fef4822")
	EndpointSet  = uuid.MustParse("1da5d803-d492-4edd-8c23-e0c0ffee7f0e")
	EngineSet    = uuid.MustParse("f19f064d-082c-4e27-bc73-6882a1bb8e4c")

	// HDASet holds the keys only the HDA backend produces.
	HDASet = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/smazurov/audiotopo/properties/hda"))
)

// Property keys.
var (
	DeviceFriendlyName    = topology.PropertyKey{Set: DeviceSet, ID: 14}
	DeviceDescription     = topology.PropertyKey{Set: DeviceSet, ID: 2}
	InterfaceFriendlyName = topology.PropertyKey{Set: InterfaceSet, ID: 2}
	EndpointFormFactor    = topology.PropertyKey{Set: EndpointSet, ID: 0}
	EndpointJackSubType   = topology.PropertyKey{Set: EndpointSet, ID: 8}
	EndpointGUID          = topology.PropertyKey{Set: EndpointSet, ID: 4}
	EngineDeviceFormat    = topology.PropertyKey{Set: EngineSet, ID: 0}

	HDACardID       = topology.PropertyKey{Set: HDASet, ID: 1}
	HDACardName     = topology.PropertyKey{Set: HDASet, ID: 2}
	HDACodecVendor  = topology.PropertyKey{Set: HDASet, ID: 3}
	HDACodecSubsys  = topology.PropertyKey{Set: HDASet, ID: 4}
	HDACodecRev     = topology.PropertyKey{Set: HDASet, ID: 5}
	HDAConverterNID = topology.PropertyKey{Set: HDASet, ID: 6}
	HDAPCMDevice    = topology.PropertyKey{Set: HDASet, ID: 7}
)

type schema struct {
	display string
	record  topology.DescriptionRecord
}

var schemas = map[topology.PropertyKey]schema{
	DeviceFriendlyName:    {"Name", topology.DescriptionRecord{CanonicalName: "System.Devices.FriendlyName", DisplayName: "Name", TypeName: "string"}},
	DeviceDescription:     {"Device description", topology.DescriptionRecord{CanonicalName: "System.Devices.DeviceDescription", DisplayName: "Device description", TypeName: "string"}},
	InterfaceFriendlyName: {"Interface name", topology.DescriptionRecord{CanonicalName: "System.Devices.InterfaceFriendlyName", DisplayName: "Interface name", TypeName: "string"}},
	EndpointFormFactor:    {"Form factor", topology.DescriptionRecord{CanonicalName: "System.Devices.AudioEndpoint.FormFactor", DisplayName: "Form factor", TypeName: "uint32"}},
	EndpointJackSubType:   {"Jack sub type", topology.DescriptionRecord{CanonicalName: "System.Devices.AudioEndpoint.JackSubType", DisplayName: "Jack sub type", TypeName: "guid"}},
	EndpointGUID:          {"Endpoint GUID", topology.DescriptionRecord{CanonicalName: "System.Devices.AudioEndpoint.GUID", DisplayName: "Endpoint GUID", TypeName: "guid"}},
	EngineDeviceFormat:    {"Device format", topology.DescriptionRecord{CanonicalName: "System.Devices.AudioEngine.DeviceFormat", DisplayName: "Device format", TypeName: "blob"}},

	HDACardID:       {"Card id", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.CardID", DisplayName: "Card id", TypeName: "string"}},
	HDACardName:     {"Card name", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.CardName", DisplayName: "Card name", TypeName: "string"}},
	HDACodecVendor:  {"Codec vendor id", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.VendorID", DisplayName: "Codec vendor id", TypeName: "uint32"}},
	HDACodecSubsys:  {"Codec subsystem id", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.SubsystemID", DisplayName: "Codec subsystem id", TypeName: "uint32"}},
	HDACodecRev:     {"Codec revision id", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.RevisionID", DisplayName: "Codec revision id", TypeName: "uint32"}},
	HDAConverterNID: {"Converter node", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.ConverterNID", DisplayName: "Converter node", TypeName: "uint32"}},
	HDAPCMDevice:    {"PCM device", topology.DescriptionRecord{CanonicalName: "Audiotopo.HDA.PCMDevice", DisplayName: "PCM device", TypeName: "uint32"}},
}

// DisplayName returns the human-readable name of a well-known key.
func DisplayName(key topology.PropertyKey) (string, bool) {
	s, ok := schemas[key]
	return s.display, ok
}

// Describe returns the description record of a well-known key, or topology.ErrNoDescription.
func Describe(key topology.PropertyKey) (*topology.DescriptionRecord, error) {
	s, ok := schemas[key]
	if !ok {
		return nil, topology.ErrNoDescription
	}
	rec := s.record
	return &rec, nil
}

// Control-interface ids.
var (
	IAudioVolumeLevel = uuid.MustParse("7fb7b48f-531d-44a2-bcb3-5ad5a134b3dc")
	IAudioMute        = uuid.MustParse("df45aeea-b74a-4b6b-afad-2366b6aa012e")
	IGenericControl   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/smazurov/audiotopo/controls/generic"))
)

// Control returns the control interface for a mixer control name such as
// "Master Playback Volume". Names ending in Volume map to IAudioVolumeLevel, names ending
// in Switch to IAudioMute.
func Control(name string) topology.ControlInterface {
	switch {
	case hasSuffixWord(name, "Volume"):
		return topology.ControlInterface{IID: IAudioVolumeLevel, Name: name}
	case hasSuffixWord(name, "Switch"):
		return topology.ControlInterface{IID: IAudioMute, Name: name}
	default:
		return topology.ControlInterface{IID: IGenericControl, Name: name}
	}
}

func hasSuffixWord(s, word string) bool {
	if len(s) < len(word) || s[len(s)-len(word):] != word {
		return false
	}
	return len(s) == len(word) || s[len(s)-len(word)-1] == ' '
}

var subTypeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/smazurov/audiotopo/subtypes"))

// SubType returns the deterministic sub-type id of a node kind, e.g. "Pin Complex".
func SubType(kind string) uuid.UUID {
	return uuid.NewSHA1(subTypeNamespace, []byte(kind))
}
