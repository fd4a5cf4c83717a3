package topology

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var errInjected = errors.New("injected failure")

// fakePart is an in-memory part. Every fakePart is a Connector and a ControlActivator;
// fakeList hides the connector capability when noCast is set.
type fakePart struct {
	name     string
	id       string
	local    uint32
	subtype  uuid.UUID
	ptype    PartType
	kind     ConnectorType
	peer     *fakePart
	incoming []*fakePart
	outgoing []*fakePart
	controls []ControlInterface
	volume   *fakeVolume
	muted    *bool
	noCast   bool
	fail     map[string]bool
}

func (p *fakePart) failing(op string) bool {
	return p.fail != nil && p.fail[op]
}

func (p *fakePart) Name() (string, error) {
	if p.failing("name") {
		return "", errInjected
	}
	return p.name, nil
}

func (p *fakePart) GlobalID() (string, error) {
	if p.failing("global_id") {
		return "", errInjected
	}
	return p.id, nil
}

func (p *fakePart) LocalID() (uint32, error) {
	if p.failing("local_id") {
		return 0, errInjected
	}
	return p.local, nil
}

func (p *fakePart) SubType() (uuid.UUID, error) {
	if p.failing("subtype") {
		return uuid.Nil, errInjected
	}
	return p.subtype, nil
}

func (p *fakePart) PartType() (PartType, error) {
	if p.failing("type") {
		return 0, errInjected
	}
	return p.ptype, nil
}

func (p *fakePart) ControlInterfaceCount() (int, error) {
	if p.failing("control_count") {
		return 0, errInjected
	}
	return len(p.controls), nil
}

func (p *fakePart) ControlInterfaceAt(index int) (ControlInterface, error) {
	if p.failing(fmt.Sprintf("control:%d", index)) {
		return ControlInterface{}, errInjected
	}
	return p.controls[index], nil
}

func (p *fakePart) IncomingParts() (PartList, error) {
	if p.failing("incoming") {
		return nil, errInjected
	}
	if len(p.incoming) == 0 {
		return nil, ErrNoParts
	}
	return &fakeList{parts: p.incoming}, nil
}

func (p *fakePart) OutgoingParts() (PartList, error) {
	if p.failing("outgoing") {
		return nil, errInjected
	}
	if len(p.outgoing) == 0 {
		return nil, ErrNoParts
	}
	return &fakeList{parts: p.outgoing}, nil
}

func (p *fakePart) Kind() (ConnectorType, error) {
	if p.failing("kind") {
		return ConnectorUnknown, errInjected
	}
	return p.kind, nil
}

func (p *fakePart) ConnectedTo() (Connector, error) {
	if p.failing("peer") {
		return nil, errInjected
	}
	if p.peer == nil {
		return nil, ErrNotConnected
	}
	return p.peer, nil
}

func (p *fakePart) VolumeLevel() (VolumeLevel, error) {
	if p.failing("volume") {
		return nil, errInjected
	}
	if p.volume == nil {
		return nil, ErrNoInterface
	}
	return p.volume, nil
}

func (p *fakePart) Mute() (MuteControl, error) {
	if p.failing("mute") {
		return nil, errInjected
	}
	if p.muted == nil {
		return nil, ErrNoInterface
	}
	return fakeMute(*p.muted), nil
}

type fakeVolume struct {
	levels    []float32
	min, max  float32
	step      float32
	failLevel int
}

func (v *fakeVolume) ChannelCount() (int, error) {
	return len(v.levels), nil
}

func (v *fakeVolume) LevelRange(int) (float32, float32, float32, error) {
	return v.min, v.max, v.step, nil
}

func (v *fakeVolume) Level(channel int) (float32, error) {
	if v.failLevel == channel+1 {
		return 0, errInjected
	}
	return v.levels[channel], nil
}

type fakeMute bool

func (m fakeMute) Muted() (bool, error) {
	return bool(m), nil
}

// partOnly hides every capability except Part.
type partOnly struct {
	Part
}

type fakeList struct {
	parts []*fakePart
	fail  map[int]bool
}

func (l *fakeList) Count() (int, error) {
	return len(l.parts), nil
}

func (l *fakeList) At(index int) (Part, error) {
	if l.fail[index] {
		return nil, errInjected
	}
	p := l.parts[index]
	if p.noCast {
		return partOnly{p}, nil
	}
	return p, nil
}

type fakeTopology struct {
	connectors []*fakePart
	fail       map[string]bool
}

func (t *fakeTopology) ConnectorCount() (int, error) {
	if t.fail["connector_count"] {
		return 0, errInjected
	}
	return len(t.connectors), nil
}

func (t *fakeTopology) ConnectorAt(index int) (Connector, error) {
	if t.fail[fmt.Sprintf("connector:%d", index)] {
		return nil, errInjected
	}
	return t.connectors[index], nil
}

type fakeProp struct {
	key     PropertyKey
	value   string
	display string
	desc    *DescriptionRecord
	fail    map[string]bool
}

type fakeStore struct {
	props     []fakeProp
	failCount bool
}

func (s *fakeStore) Count() (int, error) {
	if s.failCount {
		return 0, errInjected
	}
	return len(s.props), nil
}

func (s *fakeStore) KeyAt(index int) (PropertyKey, error) {
	if s.props[index].fail["key"] {
		return PropertyKey{}, errInjected
	}
	return s.props[index].key, nil
}

func (s *fakeStore) find(key PropertyKey) (fakeProp, bool) {
	for _, p := range s.props {
		if p.key == key {
			return p, true
		}
	}
	return fakeProp{}, false
}

func (s *fakeStore) ValueText(key PropertyKey) (string, error) {
	p, ok := s.find(key)
	if !ok || p.fail["value"] {
		return "", errInjected
	}
	return p.value, nil
}

func (s *fakeStore) DisplayName(key PropertyKey) (string, error) {
	p, ok := s.find(key)
	if !ok || p.fail["display_name"] {
		return "", errInjected
	}
	if p.display == "" {
		return "", ErrNoDescription
	}
	return p.display, nil
}

func (s *fakeStore) Description(key PropertyKey) (*DescriptionRecord, error) {
	p, ok := s.find(key)
	if !ok || p.fail["description"] {
		return nil, errInjected
	}
	if p.desc == nil {
		return nil, ErrNoDescription
	}
	return p.desc, nil
}

type fakeDevice struct {
	id         string
	flow       DataFlow
	state      DeviceState
	connectors []*fakePart
	store      *fakeStore
	fail       map[string]bool
}

func (d *fakeDevice) ID() string { return d.id }

func (d *fakeDevice) DataFlow() (DataFlow, error) {
	if d.fail["flow"] {
		return 0, errInjected
	}
	return d.flow, nil
}

func (d *fakeDevice) State() (DeviceState, error) {
	if d.fail["state"] {
		return 0, errInjected
	}
	return d.state, nil
}

func (d *fakeDevice) OpenTopology(context.Context) (Topology, error) {
	if d.fail["topology"] {
		return nil, errInjected
	}
	return &fakeTopology{connectors: d.connectors, fail: d.fail}, nil
}

func (d *fakeDevice) OpenPropertyStore(context.Context) (PropertyStore, error) {
	if d.fail["properties"] {
		return nil, errInjected
	}
	if d.store == nil {
		return &fakeStore{}, nil
	}
	return d.store, nil
}

func connector(id string, kind ConnectorType) *fakePart {
	return &fakePart{name: id, id: id, ptype: PartConnector, kind: kind}
}

func subunit(id string) *fakePart {
	return &fakePart{name: id, id: id, ptype: PartSubunit}
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Info.Name)
	}
	return out
}

func codes(diags []Diagnostic) []ErrorCode {
	out := make([]ErrorCode, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func seedsOf(parts ...*fakePart) []Connector {
	out := make([]Connector, 0, len(parts))
	for _, p := range parts {
		out = append(out, p)
	}
	return out
}
