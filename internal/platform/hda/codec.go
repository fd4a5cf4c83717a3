package hda

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Widget types as printed in codec dumps.
const (
	TypeAudioOutput = "Audio Output"
	TypeAudioInput  = "Audio Input"
	TypeAudioMixer  = "Audio Mixer"
	TypeSelector    = "Audio Selector"
	TypePinComplex  = "Pin Complex"
)

// Pin connectivity values from the Pin Default line.
const (
	ConnJack  = "Jack"
	ConnFixed = "Fixed"
	ConnBoth  = "Both"
	ConnNone  = "N/A"
)

// AmpCaps are the amplifier capabilities of a widget.
type AmpCaps struct {
	Offset   int
	NumSteps int
	StepSize int
	Mute     bool
}

// StepDB returns the gain of one step in dB.
func (c AmpCaps) StepDB() float32 {
	return float32(c.StepSize+1) / 4
}

// Widget is one node of a codec dump.
type Widget struct {
	NID  int
	Type string

	Controls []string

	HasDevice  bool
	DeviceName string
	PCMDevice  int

	OutCaps *AmpCaps
	OutVals [][]int
	InCaps  *AmpCaps
	InVals  [][]int

	Pincap       uint32
	PinDefault   uint32
	Connectivity string
	PinName      string

	Connections []int
	// Selected is the index into Connections marked active, or -1.
	Selected int
}

// IsConverter reports whether the widget is a DAC or ADC.
func (w *Widget) IsConverter() bool {
	return w.Type == TypeAudioOutput || w.Type == TypeAudioInput
}

// IsPin reports whether the widget is a pin complex.
func (w *Widget) IsPin() bool {
	return w.Type == TypePinComplex
}

// Connected reports whether a pin is wired to something on the board.
func (w *Widget) Connected() bool {
	return w.IsPin() && w.Connectivity != "" && w.Connectivity != ConnNone
}

// Codec is a parsed /proc/asound/cardN/codec#M file.
type Codec struct {
	Name        string
	Address     int
	VendorID    uint32
	SubsystemID uint32
	RevisionID  uint32
	Widgets     []*Widget

	byNID map[int]*Widget
	users map[int][]int
}

// Widget returns the widget with the given node id.
func (c *Codec) Widget(nid int) (*Widget, bool) {
	w, ok := c.byNID[nid]
	return w, ok
}

// Users returns the node ids of the widgets that list nid in their connection list, in
// widget order.
func (c *Codec) Users(nid int) []int {
	return c.users[nid]
}

var (
	nodeLine       = regexp.MustCompile(`^Node 0x([0-9a-fA-F]+) \[([^\]]+)\]`)
	quotedName     = regexp.MustCompile(`name="([^"]*)"`)
	deviceNumber   = regexp.MustCompile(`device=(\d+)`)
	ampCapsFields  = regexp.MustCompile(`ofst=0x([0-9a-fA-F]+), nsteps=0x([0-9a-fA-F]+), stepsize=0x([0-9a-fA-F]+), mute=(\d)`)
	bracketGroup   = regexp.MustCompile(`\[([^\]]*)\]`)
	pinDefaultLine = regexp.MustCompile(`^Pin Default 0x([0-9a-fA-F]+): \[([^\]]+)\]\s*(.*)$`)
	pincapLine     = regexp.MustCompile(`^Pincap 0x([0-9a-fA-F]+)`)
)

// ParseCodec parses a codec dump.
func ParseCodec(r io.Reader) (*Codec, error) {
	codec := &Codec{byNID: make(map[int]*Widget), users: make(map[int][]int)}

	var cur *Widget
	expectConnections := false
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if m := nodeLine.FindStringSubmatch(raw); m != nil {
			nid, err := strconv.ParseInt(m[1], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid node id: %w", lineNo, err)
			}
			cur = &Widget{NID: int(nid), Type: m[2], Selected: -1}
			codec.Widgets = append(codec.Widgets, cur)
			codec.byNID[cur.NID] = cur
			expectConnections = false
			continue
		}

		if cur == nil {
			if err := parseHeaderLine(codec, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if expectConnections {
			expectConnections = false
			if err := parseConnections(cur, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if err := parseWidgetLine(cur, line, &expectConnections); err != nil {
			return nil, fmt.Errorf("line %d: node 0x%02x: %w", lineNo, cur.NID, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codec: %w", err)
	}

	for _, w := range codec.Widgets {
		for _, src := range w.Connections {
			codec.users[src] = append(codec.users[src], w.NID)
		}
	}
	return codec, nil
}

func parseHeaderLine(codec *Codec, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)

	var err error
	switch key {
	case "Codec":
		codec.Name = value
	case "Address":
		codec.Address, err = strconv.Atoi(value)
	case "Vendor Id":
		codec.VendorID, err = parseHex32(value)
	case "Subsystem Id":
		codec.SubsystemID, err = parseHex32(value)
	case "Revision Id":
		codec.RevisionID, err = parseHex32(value)
	}
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return nil
}

func parseWidgetLine(w *Widget, line string, expectConnections *bool) error {
	switch {
	case strings.HasPrefix(line, "Control: "):
		if m := quotedName.FindStringSubmatch(line); m != nil {
			w.Controls = append(w.Controls, m[1])
		}

	case strings.HasPrefix(line, "Device: "):
		w.HasDevice = true
		if m := quotedName.FindStringSubmatch(line); m != nil {
			w.DeviceName = m[1]
		}
		if m := deviceNumber.FindStringSubmatch(line); m != nil {
			w.PCMDevice, _ = strconv.Atoi(m[1])
		}

	case strings.HasPrefix(line, "Amp-Out caps:"):
		caps, err := parseAmpCaps(line)
		if err != nil {
			return err
		}
		w.OutCaps = caps

	case strings.HasPrefix(line, "Amp-Out vals:"):
		vals, err := parseAmpVals(line)
		if err != nil {
			return err
		}
		w.OutVals = append(w.OutVals, vals...)

	case strings.HasPrefix(line, "Amp-In caps:"):
		caps, err := parseAmpCaps(line)
		if err != nil {
			return err
		}
		w.InCaps = caps

	// One bracket group per input connection.
	case strings.HasPrefix(line, "Amp-In vals:"):
		vals, err := parseAmpVals(line)
		if err != nil {
			return err
		}
		w.InVals = append(w.InVals, vals...)

	case strings.HasPrefix(line, "Pincap "):
		if m := pincapLine.FindStringSubmatch(line); m != nil {
			v, err := parseHex32("0x" + m[1])
			if err != nil {
				return fmt.Errorf("invalid pincap: %w", err)
			}
			w.Pincap = v
		}

	case strings.HasPrefix(line, "Pin Default "):
		m := pinDefaultLine.FindStringSubmatch(line)
		if m == nil {
			return fmt.Errorf("malformed pin default %q", line)
		}
		v, err := parseHex32("0x" + m[1])
		if err != nil {
			return fmt.Errorf("invalid pin default: %w", err)
		}
		w.PinDefault = v
		w.Connectivity = m[2]
		w.PinName = strings.TrimSpace(m[3])

	case strings.HasPrefix(line, "Connection: "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Connection: ")))
		if err != nil {
			return fmt.Errorf("invalid connection count: %w", err)
		}
		*expectConnections = n > 0
	}
	return nil
}

func parseConnections(w *Widget, line string) error {
	for i, f := range strings.Fields(line) {
		selected := strings.HasSuffix(f, "*")
		f = strings.TrimSuffix(f, "*")
		v, err := strconv.ParseInt(strings.TrimPrefix(f, "0x"), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid connection %q: %w", f, err)
		}
		w.Connections = append(w.Connections, int(v))
		if selected {
			w.Selected = i
		}
	}
	return nil
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0x"), 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// parseAmpCaps returns nil for "N/A" amps.
func parseAmpCaps(line string) (*AmpCaps, error) {
	m := ampCapsFields.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	caps := &AmpCaps{Mute: m[4] == "1"}
	for i, dst := range []*int{&caps.Offset, &caps.NumSteps, &caps.StepSize} {
		v, err := strconv.ParseInt(m[i+1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid amp caps: %w", err)
		}
		*dst = int(v)
	}
	return caps, nil
}

func parseAmpVals(line string) ([][]int, error) {
	var groups [][]int
	for _, g := range bracketGroup.FindAllStringSubmatch(line, -1) {
		var vals []int
		for _, f := range strings.Fields(g[1]) {
			v, err := strconv.ParseInt(strings.TrimPrefix(f, "0x"), 16, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid amp value %q: %w", f, err)
			}
			vals = append(vals, int(v))
		}
		groups = append(groups, vals)
	}
	return groups, nil
}
