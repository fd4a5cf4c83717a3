package topology

import (
	"context"
	"errors"
	"fmt"
)

// Session holds the handles of one device for one enumeration pass.
type Session struct {
	device   Device
	topology Topology
	store    PropertyStore
	flow     DataFlow
	flowOK   bool
	state    DeviceState
	opts     WalkOptions
	diags    []Diagnostic
}

// Open activates the topology and the property store of dev. It fails only when neither
// can be opened; a single failure is kept as a diagnostic of the session.
func Open(ctx context.Context, dev Device, opts WalkOptions) (*Session, error) {
	id := dev.ID()
	if err := ctx.Err(); err != nil {
		return nil, newError(ErrCodeCancelled, "open device", id, err)
	}

	s := &Session{device: dev, opts: opts, flow: All}
	logger := opts.logger()

	topo, topoErr := dev.OpenTopology(ctx)
	store, storeErr := dev.OpenPropertyStore(ctx)
	if topoErr != nil && storeErr != nil {
		return nil, newError(ErrCodeOpenFailure, "open device", id, errors.Join(topoErr, storeErr))
	}
	if topoErr != nil {
		s.record(newError(ErrCodeOpenFailure, "open topology", id, topoErr))
	}
	if storeErr != nil {
		s.record(newError(ErrCodeOpenFailure, "open property store", id, storeErr))
	}
	s.topology = topo
	s.store = store

	flow, err := dev.DataFlow()
	if err != nil {
		s.record(newError(ErrCodeReadFailure, "read data flow", id, err))
	} else {
		s.flow = flow
		s.flowOK = true
	}
	state, err := dev.State()
	if err != nil {
		s.record(newError(ErrCodeReadFailure, "read state", id, err))
	} else {
		s.state = state
	}

	logger.Debug("Opened device", "device_id", id, "flow", s.flow, "state", s.state,
		"topology", topoErr == nil, "properties", storeErr == nil)
	return s, nil
}

func (s *Session) record(err error) {
	s.diags = append(s.diags, Diagnose(err))
}

// DataFlow returns the cached data flow and whether it could be read. An unreadable flow
// is reported as All.
func (s *Session) DataFlow() (DataFlow, bool) {
	return s.flow, s.flowOK
}

// State returns the cached device state. Zero means it could not be read.
func (s *Session) State() DeviceState {
	return s.state
}

// Seeds returns the top-level connectors of the device topology. Unreadable connectors
// are skipped and reported as diagnostics.
func (s *Session) Seeds() ([]Connector, []Diagnostic) {
	if s.topology == nil {
		return nil, nil
	}
	id := s.device.ID()
	count, err := s.topology.ConnectorCount()
	if err != nil {
		return nil, []Diagnostic{Diagnose(newError(ErrCodeReadFailure, "count connectors", id, err))}
	}
	var diags []Diagnostic
	seeds := make([]Connector, 0, count)
	for i := 0; i < count; i++ {
		c, err := s.topology.ConnectorAt(i)
		if err != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "read connector",
				fmt.Sprintf("%s/connector[%d]", id, i), err)))
			continue
		}
		seeds = append(seeds, c)
	}
	return seeds, diags
}

// Run walks the device and extracts its properties. The returned error is non-nil only
// when ctx is cancelled; the report then holds everything gathered so far.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		DeviceID: s.device.ID(),
		DataFlow: s.flow,
		State:    s.state,
	}

	report.Diagnostics = append(report.Diagnostics, s.diags...)

	var seeds []Connector
	if s.flowOK {
		var diags []Diagnostic
		seeds, diags = s.Seeds()
		report.Diagnostics = append(report.Diagnostics, diags...)
	}

	var walkErr error
	if s.flowOK && s.topology != nil {
		roots, diags, err := Walk(ctx, seeds, s.flow, s.state, s.opts)
		report.Roots = roots
		report.Diagnostics = append(report.Diagnostics, diags...)
		walkErr = err
	}

	if walkErr != nil {
		report.Diagnostics = append(report.Diagnostics, Diagnose(walkErr))
		return report, walkErr
	}

	if s.store != nil {
		props, diags := extractProperties(ctx, s.store, s.opts.logger())
		report.Properties = props
		report.Diagnostics = append(report.Diagnostics, diags...)
	}
	if err := ctx.Err(); err != nil {
		return report, newError(ErrCodeCancelled, "run", report.DeviceID, err)
	}
	return report, nil
}

// WalkDevice opens dev and runs one pass over it. Open failures become diagnostics of the
// returned report; the only error is a cancellation.
func WalkDevice(ctx context.Context, dev Device, opts WalkOptions) (*Report, error) {
	s, err := Open(ctx, dev, opts)
	if err != nil {
		report := &Report{DeviceID: dev.ID(), Diagnostics: []Diagnostic{Diagnose(err)}}
		if IsCode(err, ErrCodeCancelled) {
			return report, err
		}
		return report, nil
	}
	return s.Run(ctx)
}
