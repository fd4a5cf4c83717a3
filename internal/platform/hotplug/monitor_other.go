//go:build !linux

package hotplug

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by NewMonitor on platforms without netlink uevents.
var ErrUnsupported = errors.New("hotplug monitoring requires linux")

// Monitor is unavailable on this platform.
type Monitor struct{}

// NewMonitor always fails on this platform.
func NewMonitor() (*Monitor, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (m *Monitor) Close() error { return nil }

// Run closes events and returns ErrUnsupported.
func (m *Monitor) Run(_ context.Context, events chan<- Event) error {
	close(events)
	return ErrUnsupported
}
