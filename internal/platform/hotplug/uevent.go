// Package hotplug reports sound card arrivals and removals from kernel uevents.
//
// The kernel broadcasts a uevent over netlink for every device change. Only the sound
// subsystem is of interest here: a card being added or removed changes the endpoint set
// of the hda backend.
package hotplug

import (
	"bytes"
	"path"
	"strconv"
	"strings"
)

// Uevent actions that change the endpoint set.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
)

// SubsystemSound is the uevent subsystem of ALSA devices.
const SubsystemSound = "sound"

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string // kernel object path, e.g. /devices/pci0000:00/0000:00:1f.3/sound/card0
	Subsystem string
	DevName   string // e.g. snd/controlC0
	Env       map[string]string
}

// Parse decodes a kernel uevent datagram of the form "ACTION@KOBJ\0KEY=VALUE\0...".
func Parse(data []byte) (Event, bool) {
	header, rest, _ := bytes.Cut(data, []byte{0})
	action, kobj, ok := strings.Cut(string(header), "@")
	if !ok || action == "" || kobj == "" {
		return Event{}, false
	}

	ev := Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, field := range bytes.Split(rest, []byte{0}) {
		key, value, ok := strings.Cut(string(field), "=")
		if !ok || key == "" {
			continue
		}
		ev.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "DEVNAME":
			ev.DevName = value
		}
	}
	return ev, true
}

// Card returns the index of the sound card the event is about. Only the card object itself
// or its control device qualify; PCM and timer children are ignored so that one card
// arrival is reported once.
func (e Event) Card() (int, bool) {
	if e.Subsystem != SubsystemSound {
		return 0, false
	}
	if n, ok := strings.CutPrefix(e.DevName, "snd/controlC"); ok {
		return atoi(n)
	}
	if n, ok := strings.CutPrefix(path.Base(e.KObj), "card"); ok {
		return atoi(n)
	}
	return 0, false
}

// ChangesEndpoints reports whether the event adds, removes or changes a sound card.
func (e Event) ChangesEndpoints() bool {
	switch e.Action {
	case ActionAdd, ActionRemove, ActionChange:
	default:
		return false
	}
	_, ok := e.Card()
	return ok
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n >= 0
}
