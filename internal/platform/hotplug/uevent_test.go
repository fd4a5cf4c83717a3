package hotplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		ok    bool
		want  Event
	}{
		{name: "empty", input: nil},
		{name: "no separator", input: []byte("invalid")},
		{name: "missing action", input: []byte("@/devices/foo")},
		{name: "missing kobj", input: []byte("add@\x00SUBSYSTEM=sound")},
		{
			name:  "card add",
			input: []byte("add@/devices/pci0000:00/0000:00:1f.3/sound/card0\x00ACTION=add\x00SUBSYSTEM=sound\x00SEQNUM=4021\x00"),
			ok:    true,
			want: Event{
				Action:    "add",
				KObj:      "/devices/pci0000:00/0000:00:1f.3/sound/card0",
				Subsystem: "sound",
				Env:       map[string]string{"ACTION": "add", "SUBSYSTEM": "sound", "SEQNUM": "4021"},
			},
		},
		{
			name:  "control device remove",
			input: []byte("remove@/devices/usb1/1-2/1-2:1.0/sound/card2/controlC2\x00SUBSYSTEM=sound\x00DEVNAME=snd/controlC2\x00MAJOR=116\x00"),
			ok:    true,
			want: Event{
				Action:    "remove",
				KObj:      "/devices/usb1/1-2/1-2:1.0/sound/card2/controlC2",
				Subsystem: "sound",
				DevName:   "snd/controlC2",
				Env:       map[string]string{"SUBSYSTEM": "sound", "DEVNAME": "snd/controlC2", "MAJOR": "116"},
			},
		},
		{
			name:  "malformed fields skipped",
			input: []byte("change@/devices/sound/card1\x00SUBSYSTEM=sound\x00garbage\x00=novalue\x00"),
			ok:    true,
			want: Event{
				Action:    "change",
				KObj:      "/devices/sound/card1",
				Subsystem: "sound",
				Env:       map[string]string{"SUBSYSTEM": "sound"},
			},
		},
		{
			// udevd relays carry a binary header and no ACTION@KOBJ line.
			name:  "udevd relay",
			input: []byte("libudev\x00\xfe\xed\xca\xfe\x00\x00\x00\x28ACTION=add\x00SUBSYSTEM=sound\x00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEventCard(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		card    int
		ok      bool
		changes bool
	}{
		{
			name:    "card object",
			event:   Event{Action: ActionAdd, Subsystem: SubsystemSound, KObj: "/devices/pci/sound/card0"},
			card:    0,
			ok:      true,
			changes: true,
		},
		{
			name:    "control device",
			event:   Event{Action: ActionRemove, Subsystem: SubsystemSound, KObj: "/devices/usb/sound/card2/controlC2", DevName: "snd/controlC2"},
			card:    2,
			ok:      true,
			changes: true,
		},
		{
			name:  "pcm child",
			event: Event{Action: ActionAdd, Subsystem: SubsystemSound, KObj: "/devices/pci/sound/card0/pcmC0D0p", DevName: "snd/pcmC0D0p"},
		},
		{
			name:  "other subsystem",
			event: Event{Action: ActionAdd, Subsystem: "usb", KObj: "/devices/usb/card0"},
		},
		{
			name:  "bind action",
			event: Event{Action: "bind", Subsystem: SubsystemSound, KObj: "/devices/pci/sound/card1"},
			card:  1,
			ok:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card, ok := tt.event.Card()
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.card, card)
			}
			assert.Equal(t, tt.changes, tt.event.ChangesEndpoints())
		})
	}
}
