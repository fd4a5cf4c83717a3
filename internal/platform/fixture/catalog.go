package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/smazurov/audiotopo/internal/logging"
	"github.com/smazurov/audiotopo/internal/platform/wellknown"
	"github.com/smazurov/audiotopo/internal/topology"
)

// ErrInjected is returned by every read named in a fail list.
var ErrInjected = errors.New("injected failure")

// Catalog serves the devices of a validated fixture file.
type Catalog struct {
	file   *File
	parts  map[string]*PartConfig
	logger *slog.Logger
}

// New creates a catalog from a validated file.
func New(f *File) *Catalog {
	parts := make(map[string]*PartConfig, len(f.Parts))
	for i := range f.Parts {
		parts[f.Parts[i].ID] = &f.Parts[i]
	}
	return &Catalog{file: f, parts: parts, logger: logging.GetLogger("platform")}
}

// Load reads, validates and serves a fixture file.
func Load(path string) (*Catalog, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// Reentrant reports that devices of this catalog may be walked concurrently.
func (c *Catalog) Reentrant() bool {
	return true
}

// Devices implements topology.Catalog.
func (c *Catalog) Devices(ctx context.Context, flow topology.DataFlow, stateMask topology.DeviceState) ([]topology.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var devices []topology.Device
	for i := range c.file.Devices {
		cfg := &c.file.Devices[i]
		devFlow, _ := parseFlow(cfg.Flow)
		devState, _ := parseState(cfg.State)
		if flow != topology.All && devFlow != flow {
			continue
		}
		if devState&stateMask == 0 {
			continue
		}
		devices = append(devices, &device{
			catalog: c,
			cfg:     cfg,
			flow:    devFlow,
			state:   devState,
			fail:    flags(cfg.Fail),
		})
	}
	c.logger.Debug("Enumerated fixture devices", "count", len(devices))
	return devices, nil
}

func (c *Catalog) partByID(id string) topology.Part {
	cfg := c.parts[id]
	p := part{catalog: c, cfg: cfg, fail: flags(cfg.Fail)}
	if cfg.Type == "connector" {
		return &connector{part: p}
	}
	return &p
}

type device struct {
	catalog *Catalog
	cfg     *DeviceConfig
	flow    topology.DataFlow
	state   topology.DeviceState
	fail    map[string]bool
}

func (d *device) ID() string { return d.cfg.ID }

func (d *device) DataFlow() (topology.DataFlow, error) {
	if d.fail["flow"] {
		return 0, ErrInjected
	}
	return d.flow, nil
}

func (d *device) State() (topology.DeviceState, error) {
	if d.fail["state"] {
		return 0, ErrInjected
	}
	return d.state, nil
}

func (d *device) OpenTopology(ctx context.Context) (topology.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.fail["topology"] {
		return nil, ErrInjected
	}
	return &fixtureTopology{device: d}, nil
}

func (d *device) OpenPropertyStore(ctx context.Context) (topology.PropertyStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.fail["properties"] {
		return nil, ErrInjected
	}
	return newStore(d.cfg, d.fail["count"]), nil
}

type fixtureTopology struct {
	device *device
}

func (t *fixtureTopology) ConnectorCount() (int, error) {
	if t.device.fail["connector_count"] {
		return 0, ErrInjected
	}
	return len(t.device.cfg.Connectors), nil
}

func (t *fixtureTopology) ConnectorAt(index int) (topology.Connector, error) {
	if t.device.fail[indexFlag("connector", index)] {
		return nil, ErrInjected
	}
	if index < 0 || index >= len(t.device.cfg.Connectors) {
		return nil, fmt.Errorf("connector index %d out of range", index)
	}
	conn, ok := t.device.catalog.partByID(t.device.cfg.Connectors[index]).(*connector)
	if !ok {
		return nil, fmt.Errorf("part %s is not a connector", t.device.cfg.Connectors[index])
	}
	return conn, nil
}

type part struct {
	catalog *Catalog
	cfg     *PartConfig
	fail    map[string]bool
}

func (p *part) Name() (string, error) {
	if p.fail["name"] {
		return "", ErrInjected
	}
	if p.cfg.Name == "" {
		return p.cfg.ID, nil
	}
	return p.cfg.Name, nil
}

func (p *part) GlobalID() (string, error) {
	if p.fail["global_id"] {
		return "", ErrInjected
	}
	return p.cfg.ID, nil
}

func (p *part) LocalID() (uint32, error) {
	if p.fail["local_id"] {
		return 0, ErrInjected
	}
	return p.cfg.LocalID, nil
}

func (p *part) SubType() (uuid.UUID, error) {
	if p.fail["subtype"] {
		return uuid.Nil, ErrInjected
	}
	return p.cfg.subType(), nil
}

func (p *part) PartType() (topology.PartType, error) {
	if p.fail["type"] {
		return 0, ErrInjected
	}
	var pt topology.PartType
	if err := pt.UnmarshalText([]byte(p.cfg.Type)); err != nil {
		return 0, err
	}
	return pt, nil
}

func (p *part) ControlInterfaceCount() (int, error) {
	if p.fail["control_count"] {
		return 0, ErrInjected
	}
	return len(p.cfg.Controls), nil
}

func (p *part) ControlInterfaceAt(index int) (topology.ControlInterface, error) {
	if p.fail[indexFlag("control", index)] {
		return topology.ControlInterface{}, ErrInjected
	}
	if index < 0 || index >= len(p.cfg.Controls) {
		return topology.ControlInterface{}, fmt.Errorf("control index %d out of range", index)
	}
	return wellknown.Control(p.cfg.Controls[index]), nil
}

func (p *part) IncomingParts() (topology.PartList, error) {
	if p.fail["incoming"] {
		return nil, ErrInjected
	}
	return p.list(p.cfg.Incoming)
}

func (p *part) OutgoingParts() (topology.PartList, error) {
	if p.fail["outgoing"] {
		return nil, ErrInjected
	}
	return p.list(p.cfg.Outgoing)
}

func (p *part) list(ids []string) (topology.PartList, error) {
	if len(ids) == 0 {
		return nil, topology.ErrNoParts
	}
	return &partList{catalog: p.catalog, ids: ids}, nil
}

func (p *part) VolumeLevel() (topology.VolumeLevel, error) {
	if p.fail["volume"] {
		return nil, ErrInjected
	}
	if p.cfg.Volume == nil {
		return nil, topology.ErrNoInterface
	}
	return volume{cfg: p.cfg.Volume}, nil
}

func (p *part) Mute() (topology.MuteControl, error) {
	if p.fail["mute"] {
		return nil, ErrInjected
	}
	if p.cfg.Mute == nil {
		return nil, topology.ErrNoInterface
	}
	return mute(*p.cfg.Mute), nil
}

type connector struct {
	part
}

func (c *connector) Kind() (topology.ConnectorType, error) {
	if c.fail["kind"] {
		return topology.ConnectorUnknown, ErrInjected
	}
	return topology.ParseConnectorType(c.cfg.ConnectorType)
}

func (c *connector) ConnectedTo() (topology.Connector, error) {
	if c.fail["peer"] {
		return nil, ErrInjected
	}
	if c.cfg.Peer == "" {
		return nil, topology.ErrNotConnected
	}
	peer, ok := c.catalog.partByID(c.cfg.Peer).(*connector)
	if !ok {
		return nil, fmt.Errorf("peer %s is not a connector", c.cfg.Peer)
	}
	return peer, nil
}

// partOnly hides the connector capability of a part flagged with "cast".
type partOnly struct {
	topology.Part
}

type partList struct {
	catalog *Catalog
	ids     []string
}

func (l *partList) Count() (int, error) { return len(l.ids), nil }

func (l *partList) At(index int) (topology.Part, error) {
	if index < 0 || index >= len(l.ids) {
		return nil, fmt.Errorf("part index %d out of range", index)
	}
	p := l.catalog.partByID(l.ids[index])
	if c, ok := p.(*connector); ok && c.fail["cast"] {
		return partOnly{p}, nil
	}
	return p, nil
}

type volume struct {
	cfg *VolumeConfig
}

func (v volume) ChannelCount() (int, error) { return len(v.cfg.Levels), nil }

func (v volume) LevelRange(channel int) (float32, float32, float32, error) {
	if channel < 0 || channel >= len(v.cfg.Levels) {
		return 0, 0, 0, fmt.Errorf("channel %d out of range", channel)
	}
	return v.cfg.MinDB, v.cfg.MaxDB, v.cfg.StepDB, nil
}

func (v volume) Level(channel int) (float32, error) {
	if channel < 0 || channel >= len(v.cfg.Levels) {
		return 0, fmt.Errorf("channel %d out of range", channel)
	}
	return v.cfg.Levels[channel], nil
}

type mute bool

func (m mute) Muted() (bool, error) { return bool(m), nil }

type storeEntry struct {
	key  topology.PropertyKey
	cfg  PropertyConfig
	fail map[string]bool
}

type store struct {
	entries   []storeEntry
	failCount bool
}

func newStore(cfg *DeviceConfig, failCount bool) *store {
	s := &store{failCount: failCount}
	for _, prop := range cfg.Properties {
		key, _ := topology.ParsePropertyKey(prop.Key)
		s.entries = append(s.entries, storeEntry{key: key, cfg: prop, fail: flags(prop.Fail)})
	}
	if cfg.Name != "" && !s.has(wellknown.DeviceFriendlyName) {
		s.entries = append([]storeEntry{{
			key: wellknown.DeviceFriendlyName,
			cfg: PropertyConfig{Value: cfg.Name},
		}}, s.entries...)
	}
	return s
}

func (s *store) has(key topology.PropertyKey) bool {
	_, ok := s.find(key)
	return ok
}

func (s *store) find(key topology.PropertyKey) (storeEntry, bool) {
	for _, e := range s.entries {
		if e.key == key {
			return e, true
		}
	}
	return storeEntry{}, false
}

func (s *store) Count() (int, error) {
	if s.failCount {
		return 0, ErrInjected
	}
	return len(s.entries), nil
}

func (s *store) KeyAt(index int) (topology.PropertyKey, error) {
	if index < 0 || index >= len(s.entries) {
		return topology.PropertyKey{}, fmt.Errorf("property index %d out of range", index)
	}
	if s.entries[index].fail["key"] {
		return topology.PropertyKey{}, ErrInjected
	}
	return s.entries[index].key, nil
}

func (s *store) ValueText(key topology.PropertyKey) (string, error) {
	e, ok := s.find(key)
	if !ok {
		return "", fmt.Errorf("no property %s", key)
	}
	if e.fail["value"] {
		return "", ErrInjected
	}
	return e.cfg.Value, nil
}

func (s *store) DisplayName(key topology.PropertyKey) (string, error) {
	e, ok := s.find(key)
	if ok && e.fail["display_name"] {
		return "", ErrInjected
	}
	if ok && e.cfg.DisplayName != "" {
		return e.cfg.DisplayName, nil
	}
	if name, known := wellknown.DisplayName(key); known {
		return name, nil
	}
	return "", topology.ErrNoDescription
}

func (s *store) Description(key topology.PropertyKey) (*topology.DescriptionRecord, error) {
	if e, ok := s.find(key); ok && e.fail["description"] {
		return nil, ErrInjected
	}
	return wellknown.Describe(key)
}
