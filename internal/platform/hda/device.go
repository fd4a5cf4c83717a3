package hda

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/smazurov/audiotopo/internal/platform/wellknown"
	"github.com/smazurov/audiotopo/internal/topology"
)

type device struct {
	id     string
	card   Card
	codec  *Codec
	conv   *Widget
	flow   topology.DataFlow
	state  topology.DeviceState
	logger *slog.Logger
}

func (d *device) ID() string { return d.id }

func (d *device) DataFlow() (topology.DataFlow, error) { return d.flow, nil }

func (d *device) State() (topology.DeviceState, error) { return d.state, nil }

func (d *device) OpenTopology(ctx context.Context) (topology.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := &graph{card: d.card.Index, codec: d.codec}

	var connectors []topology.Connector
	for _, w := range d.codec.Widgets {
		if w.Connected() && g.reaches(w, d.conv.NID, d.flow) {
			connectors = append(connectors, g.connector(w))
		}
	}
	d.logger.Debug("Opened HDA topology", "device_id", d.id, "connectors", len(connectors))
	return &hdaTopology{connectors: connectors}, nil
}

func (d *device) OpenPropertyStore(ctx context.Context) (topology.PropertyStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := d.conv.DeviceName
	if name == "" {
		name = fmt.Sprintf("%s %d", d.card.Name, d.conv.PCMDevice)
	}
	return &store{entries: []storeEntry{
		{wellknown.DeviceFriendlyName, name},
		{wellknown.DeviceDescription, d.codec.Name},
		{wellknown.HDACardID, d.card.ID},
		{wellknown.HDACardName, d.card.Name},
		{wellknown.HDACodecVendor, fmt.Sprintf("0x%08x", d.codec.VendorID)},
		{wellknown.HDACodecSubsys, fmt.Sprintf("0x%08x", d.codec.SubsystemID)},
		{wellknown.HDACodecRev, fmt.Sprintf("0x%x", d.codec.RevisionID)},
		{wellknown.HDAConverterNID, fmt.Sprintf("0x%02x", d.conv.NID)},
		{wellknown.HDAPCMDevice, strconv.Itoa(d.conv.PCMDevice)},
	}}, nil
}

// graph exposes the widgets of one codec as topology parts.
type graph struct {
	card  int
	codec *Codec
}

func (g *graph) globalID(nid int) string {
	return fmt.Sprintf("hda:card%d:codec%d:0x%02x", g.card, g.codec.Address, nid)
}

// neighbours returns the node ids adjacent to w in the walk direction of flow.
func (g *graph) neighbours(w *Widget, flow topology.DataFlow) []int {
	if flow == topology.Render {
		return w.Connections
	}
	return g.codec.Users(w.NID)
}

// reaches reports whether target is reachable from pin without passing through another
// connector, mirroring how the walker stops at connectors.
func (g *graph) reaches(pin *Widget, target int, flow topology.DataFlow) bool {
	seen := map[int]bool{pin.NID: true}
	queue := []*Widget{pin}
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		for _, nid := range g.neighbours(w, flow) {
			if nid == target {
				return true
			}
			if seen[nid] {
				continue
			}
			seen[nid] = true
			next, ok := g.codec.Widget(nid)
			if !ok || next.IsPin() || next.IsConverter() {
				continue
			}
			queue = append(queue, next)
		}
	}
	return false
}

func (g *graph) part(w *Widget) topology.Part {
	if w.IsPin() || w.IsConverter() {
		return g.connector(w)
	}
	return &part{graph: g, w: w}
}

func (g *graph) connector(w *Widget) *connectorPart {
	return &connectorPart{part: part{graph: g, w: w}}
}

type hdaTopology struct {
	connectors []topology.Connector
}

func (t *hdaTopology) ConnectorCount() (int, error) { return len(t.connectors), nil }

func (t *hdaTopology) ConnectorAt(index int) (topology.Connector, error) {
	if index < 0 || index >= len(t.connectors) {
		return nil, fmt.Errorf("connector index %d out of range", index)
	}
	return t.connectors[index], nil
}

type part struct {
	graph *graph
	w     *Widget
}

func (p *part) Name() (string, error) {
	switch {
	case p.w.IsPin() && p.w.PinName != "":
		return p.w.PinName, nil
	case p.w.DeviceName != "":
		return p.w.DeviceName, nil
	default:
		return fmt.Sprintf("%s 0x%02x", p.w.Type, p.w.NID), nil
	}
}

func (p *part) GlobalID() (string, error) { return p.graph.globalID(p.w.NID), nil }

func (p *part) LocalID() (uint32, error) { return uint32(p.w.NID), nil }

func (p *part) SubType() (uuid.UUID, error) { return wellknown.SubType(p.w.Type), nil }

func (p *part) PartType() (topology.PartType, error) {
	if p.w.IsPin() || p.w.IsConverter() {
		return topology.PartConnector, nil
	}
	return topology.PartSubunit, nil
}

func (p *part) ControlInterfaceCount() (int, error) { return len(p.w.Controls), nil }

func (p *part) ControlInterfaceAt(index int) (topology.ControlInterface, error) {
	if index < 0 || index >= len(p.w.Controls) {
		return topology.ControlInterface{}, fmt.Errorf("control index %d out of range", index)
	}
	return wellknown.Control(p.w.Controls[index]), nil
}

func (p *part) IncomingParts() (topology.PartList, error) {
	return p.list(p.w.Connections)
}

func (p *part) OutgoingParts() (topology.PartList, error) {
	return p.list(p.graph.codec.Users(p.w.NID))
}

func (p *part) list(nids []int) (topology.PartList, error) {
	if len(nids) == 0 {
		return nil, topology.ErrNoParts
	}
	return &partList{graph: p.graph, nids: nids}, nil
}

// amp returns the amplifier that carries the widget's level. Input
// converters have no output amp; their capture gain sits on the input side.
func (p *part) amp() (*AmpCaps, []int) {
	if p.w.OutCaps != nil && len(p.w.OutVals) > 0 {
		return p.w.OutCaps, p.w.OutVals[0]
	}
	if p.w.Type == TypeAudioInput && p.w.InCaps != nil && len(p.w.InVals) > 0 {
		return p.w.InCaps, p.w.InVals[0]
	}
	return nil, nil
}

func (p *part) VolumeLevel() (topology.VolumeLevel, error) {
	caps, vals := p.amp()
	if caps == nil || caps.NumSteps == 0 {
		return nil, topology.ErrNoInterface
	}
	return &volume{caps: *caps, vals: vals}, nil
}

func (p *part) Mute() (topology.MuteControl, error) {
	caps, vals := p.amp()
	if caps == nil || !caps.Mute {
		return nil, topology.ErrNoInterface
	}
	return mute(vals), nil
}

type connectorPart struct {
	part
}

func (c *connectorPart) Kind() (topology.ConnectorType, error) {
	if c.w.IsConverter() {
		return topology.SoftwareIO, nil
	}
	switch c.w.Connectivity {
	case ConnJack, ConnBoth:
		return topology.PhysicalExternal, nil
	case ConnFixed:
		return topology.PhysicalInternal, nil
	default:
		return topology.ConnectorUnknown, nil
	}
}

// ConnectedTo always reports unconnected: an HDA codec has no view past its pins.
func (c *connectorPart) ConnectedTo() (topology.Connector, error) {
	return nil, topology.ErrNotConnected
}

type partList struct {
	graph *graph
	nids  []int
}

func (l *partList) Count() (int, error) { return len(l.nids), nil }

func (l *partList) At(index int) (topology.Part, error) {
	if index < 0 || index >= len(l.nids) {
		return nil, fmt.Errorf("part index %d out of range", index)
	}
	w, ok := l.graph.codec.Widget(l.nids[index])
	if !ok {
		return nil, fmt.Errorf("dangling connection to node 0x%02x", l.nids[index])
	}
	return l.graph.part(w), nil
}

type volume struct {
	caps AmpCaps
	vals []int
}

func (v *volume) ChannelCount() (int, error) { return len(v.vals), nil }

func (v *volume) LevelRange(channel int) (float32, float32, float32, error) {
	if channel < 0 || channel >= len(v.vals) {
		return 0, 0, 0, fmt.Errorf("channel %d out of range", channel)
	}
	step := v.caps.StepDB()
	return float32(-v.caps.Offset) * step, float32(v.caps.NumSteps-v.caps.Offset) * step, step, nil
}

func (v *volume) Level(channel int) (float32, error) {
	if channel < 0 || channel >= len(v.vals) {
		return 0, fmt.Errorf("channel %d out of range", channel)
	}
	return float32(v.vals[channel]&0x7f-v.caps.Offset) * v.caps.StepDB(), nil
}

type mute []int

func (m mute) Muted() (bool, error) {
	for _, val := range m {
		if val&0x80 == 0 {
			return false, nil
		}
	}
	return true, nil
}

type storeEntry struct {
	key   topology.PropertyKey
	value string
}

type store struct {
	entries []storeEntry
}

func (s *store) Count() (int, error) { return len(s.entries), nil }

func (s *store) KeyAt(index int) (topology.PropertyKey, error) {
	if index < 0 || index >= len(s.entries) {
		return topology.PropertyKey{}, fmt.Errorf("property index %d out of range", index)
	}
	return s.entries[index].key, nil
}

func (s *store) ValueText(key topology.PropertyKey) (string, error) {
	for _, e := range s.entries {
		if e.key == key {
			return e.value, nil
		}
	}
	return "", fmt.Errorf("no property %s", key)
}

func (s *store) DisplayName(key topology.PropertyKey) (string, error) {
	if name, ok := wellknown.DisplayName(key); ok {
		return name, nil
	}
	return "", topology.ErrNoDescription
}

func (s *store) Description(key topology.PropertyKey) (*topology.DescriptionRecord, error) {
	return wellknown.Describe(key)
}
