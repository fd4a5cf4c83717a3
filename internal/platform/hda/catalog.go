// Package hda reads the routing graph of Intel HDA codecs from the ALSA procfs tree.
//
// Every converter widget bound to a PCM device becomes an endpoint. Pins and converters
// are connectors, mixers and selectors are subunits, and the connection lists of the codec
// dump are the edges between them.
package hda

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/smazurov/audiotopo/internal/logging"
	"github.com/smazurov/audiotopo/internal/topology"
)

// DefaultRoot is the procfs directory read when no root is configured.
const DefaultRoot = "/proc/asound"

// Catalog enumerates the HDA endpoints found under a procfs root.
type Catalog struct {
	root   string
	logger *slog.Logger
}

// NewCatalog creates a catalog reading root, or DefaultRoot when root is empty.
func NewCatalog(root string) *Catalog {
	if root == "" {
		root = DefaultRoot
	}
	return &Catalog{root: root, logger: logging.GetLogger("platform")}
}

// Root returns the procfs directory the catalog reads.
func (c *Catalog) Root() string {
	return c.root
}

// Reentrant reports that devices of this catalog may be walked concurrently.
func (c *Catalog) Reentrant() bool {
	return true
}

// Devices implements topology.Catalog.
func (c *Catalog) Devices(ctx context.Context, flow topology.DataFlow, stateMask topology.DeviceState) ([]topology.Device, error) {
	f, err := os.Open(filepath.Join(c.root, "cards"))
	if err != nil {
		return nil, fmt.Errorf("failed to open card list: %w", err)
	}
	cards, err := ParseCards(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	var devices []topology.Device
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		codecs, err := c.loadCodecs(card)
		if err != nil {
			c.logger.Warn("Skipping card", "card", card.Index, "error", err)
			continue
		}
		for _, codec := range codecs {
			for _, w := range codec.Widgets {
				if !w.IsConverter() || !w.HasDevice {
					continue
				}
				dev := c.newDevice(card, codec, w)
				if flow != topology.All && dev.flow != flow {
					continue
				}
				if dev.state&stateMask == 0 {
					continue
				}
				devices = append(devices, dev)
			}
		}
	}
	c.logger.Debug("Enumerated HDA endpoints", "root", c.root, "count", len(devices))
	return devices, nil
}

func (c *Catalog) loadCodecs(card Card) ([]*Codec, error) {
	dir := filepath.Join(c.root, "card"+strconv.Itoa(card.Index))
	paths, err := filepath.Glob(filepath.Join(dir, "codec#*"))
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return codecIndex(paths[i]) < codecIndex(paths[j])
	})

	var codecs []*Codec
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		codec, err := ParseCodec(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		codecs = append(codecs, codec)
	}
	return codecs, nil
}

func codecIndex(path string) int {
	_, suffix, _ := strings.Cut(filepath.Base(path), "#")
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return -1
	}
	return n
}

func (c *Catalog) newDevice(card Card, codec *Codec, conv *Widget) *device {
	flow := topology.Render
	suffix := "p"
	if conv.Type == TypeAudioInput {
		flow = topology.Capture
		suffix = "c"
	}

	state := topology.StateDisabled
	pcmDir := filepath.Join(c.root, "card"+strconv.Itoa(card.Index), fmt.Sprintf("pcm%d%s", conv.PCMDevice, suffix))
	if info, err := os.Stat(pcmDir); err == nil && info.IsDir() {
		state = topology.StateActive
	}

	return &device{
		id:     fmt.Sprintf("hda:card%d:pcm%d%s", card.Index, conv.PCMDevice, suffix),
		card:   card,
		codec:  codec,
		conv:   conv,
		flow:   flow,
		state:  state,
		logger: c.logger,
	}
}
