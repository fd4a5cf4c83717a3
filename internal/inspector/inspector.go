// Package inspector runs topology walks over the devices of a catalog.
package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/audiotopo/internal/events"
	"github.com/smazurov/audiotopo/internal/filter"
	"github.com/smazurov/audiotopo/internal/logging"
	"github.com/smazurov/audiotopo/internal/platform/wellknown"
	"github.com/smazurov/audiotopo/internal/topology"
)

const tracerName = "github.com/smazurov/audiotopo/internal/inspector"

// Config selects the devices to inspect and how to walk them.
type Config struct {
	Flow topology.DataFlow
	// States is the state mask passed to the catalog. Zero means active devices only.
	States topology.DeviceState
	Filter *filter.Filter
	// Parallel bounds concurrent walks. Values below 2 walk sequentially, as do catalogs
	// that are not re-entrant.
	Parallel int
	Walk     topology.WalkOptions
}

// DefaultConfig returns the configuration used when nothing is set: every data flow,
// active devices, no filter, sequential walks.
func DefaultConfig() Config {
	return Config{Flow: topology.All, States: topology.StateActive, Parallel: 1}
}

// DeviceSummary is the listing entry of one device. DataFlow is All and State is zero when
// they cannot be read; Name is empty when the friendly name cannot be resolved.
type DeviceSummary struct {
	ID       string               `json:"id" yaml:"id"`
	DataFlow topology.DataFlow    `json:"data_flow" yaml:"data_flow"`
	State    topology.DeviceState `json:"state" yaml:"state"`
	Name     string               `json:"name,omitempty" yaml:"name,omitempty"`
}

// Inspector walks the devices of a catalog and publishes the results on an event bus.
type Inspector struct {
	mu      sync.RWMutex
	catalog topology.Catalog

	cfg    Config
	bus    *events.Bus
	tracer trace.Tracer
	logger *slog.Logger
}

// New creates an inspector. bus may be nil.
func New(catalog topology.Catalog, cfg Config, bus *events.Bus) *Inspector {
	if cfg.States == 0 {
		cfg.States = topology.StateActive
	}
	logger := logging.GetLogger("inspector")
	if cfg.Walk.Logger == nil {
		cfg.Walk.Logger = logging.GetLogger("topology")
	}
	return &Inspector{
		catalog: catalog,
		cfg:     cfg,
		bus:     bus,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// Catalog returns the catalog currently in use.
func (i *Inspector) Catalog() topology.Catalog {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.catalog
}

// SetCatalog replaces the catalog. Walks already running keep the old one.
func (i *Inspector) SetCatalog(catalog topology.Catalog, source string) {
	i.mu.Lock()
	i.catalog = catalog
	i.mu.Unlock()

	count := 0
	if devices, err := catalog.Devices(context.Background(), topology.All, topology.StateMaskAll); err == nil {
		count = len(devices)
	}
	i.logger.Info("Catalog reloaded", "source", source, "devices", count)
	i.publish(events.CatalogReloadedEvent{
		Source:    source,
		Devices:   count,
		Timestamp: now(),
	})
}

// ReloadFailed reports a catalog that could not be loaded. The current catalog stays.
func (i *Inspector) ReloadFailed(source string, err error) {
	i.logger.Warn("Catalog reload failed", "source", source, "error", err)
	i.publish(events.CatalogReloadedEvent{
		Source:    source,
		Error:     err.Error(),
		Timestamp: now(),
	})
}

type candidate struct {
	device  topology.Device
	summary DeviceSummary
}

// Devices lists the devices selected by the flow, the state mask and the filter.
func (i *Inspector) Devices(ctx context.Context) ([]DeviceSummary, error) {
	candidates, err := i.selectDevices(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]DeviceSummary, len(candidates))
	for idx, c := range candidates {
		summaries[idx] = c.summary
	}
	return summaries, nil
}

func (i *Inspector) selectDevices(ctx context.Context) ([]candidate, error) {
	devices, err := i.Catalog().Devices(ctx, i.cfg.Flow, i.cfg.States)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	selected := make([]candidate, 0, len(devices))
	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary := summarize(ctx, dev)
		if !i.cfg.Filter.Empty() {
			ok, err := i.cfg.Filter.Match(filter.Vars{
				ID:    summary.ID,
				Flow:  summary.DataFlow.String(),
				State: summary.State.String(),
				Name:  summary.Name,
			})
			if err != nil {
				i.logger.Warn("Filter evaluation failed, skipping device", "device_id", summary.ID, "error", err)
				continue
			}
			if !ok {
				continue
			}
		}
		selected = append(selected, candidate{device: dev, summary: summary})
	}
	i.logger.Debug("Selected devices", "enumerated", len(devices), "selected", len(selected))
	return selected, nil
}

func summarize(ctx context.Context, dev topology.Device) DeviceSummary {
	s := DeviceSummary{ID: dev.ID(), DataFlow: topology.All}
	if flow, err := dev.DataFlow(); err == nil {
		s.DataFlow = flow
	}
	if state, err := dev.State(); err == nil {
		s.State = state
	}
	if store, err := dev.OpenPropertyStore(ctx); err == nil {
		if name, err := store.ValueText(wellknown.DeviceFriendlyName); err == nil {
			s.Name = name
		}
	}
	return s
}

// Inspect walks the device with the given id. Any device of the catalog can be inspected,
// whatever the configured selection. An unknown id yields a DEVICE_NOT_FOUND error.
func (i *Inspector) Inspect(ctx context.Context, id string) (*topology.Report, error) {
	devices, err := i.Catalog().Devices(ctx, topology.All, topology.StateMaskAll)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, dev := range devices {
		if dev.ID() == id {
			return i.walk(ctx, dev)
		}
	}
	return nil, &topology.Error{
		Code:     topology.ErrCodeDeviceNotFound,
		Op:       "inspect",
		Location: id,
		Cause:    fmt.Errorf("no device with id %q", id),
	}
}

// InspectAll walks every selected device and returns the reports in catalog order. A failed
// device never stops the loop; the only error is a cancellation, returned together with the
// reports gathered so far.
func (i *Inspector) InspectAll(ctx context.Context) ([]*topology.Report, error) {
	ctx, span := i.tracer.Start(ctx, "inspector.InspectAll")
	defer span.End()

	candidates, err := i.selectDevices(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("audiotopo.devices", len(candidates)))

	parallel := i.parallelism()
	i.logger.Info("Inspecting devices", "count", len(candidates), "parallel", parallel)

	reports := make([]*topology.Report, len(candidates))
	if parallel <= 1 {
		for idx, c := range candidates {
			report, err := i.walk(ctx, c.device)
			reports[idx] = report
			if err != nil {
				return compact(reports), err
			}
		}
		return reports, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for idx, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report, err := i.walk(gctx, c.device)
			reports[idx] = report
			return err
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return compact(reports), err
	}
	return reports, nil
}

// parallelism returns the number of concurrent walks the current catalog allows.
func (i *Inspector) parallelism() int {
	if i.cfg.Parallel <= 1 {
		return 1
	}
	if r, ok := i.Catalog().(topology.Reentrant); ok && r.Reentrant() {
		return i.cfg.Parallel
	}
	i.logger.Debug("Catalog is not re-entrant, walking sequentially")
	return 1
}

func (i *Inspector) walk(ctx context.Context, dev topology.Device) (*topology.Report, error) {
	id := dev.ID()
	ctx, span := i.tracer.Start(ctx, "inspector.walk",
		trace.WithAttributes(attribute.String("audiotopo.device_id", id)))
	defer span.End()

	start := time.Now()
	report, err := topology.WalkDevice(ctx, dev, i.cfg.Walk)
	elapsed := time.Since(start)

	nodes := report.Nodes()
	connectors := report.Connectors()
	span.SetAttributes(
		attribute.String("audiotopo.data_flow", report.DataFlow.String()),
		attribute.Int("audiotopo.nodes", len(nodes)),
		attribute.Int("audiotopo.diagnostics", len(report.Diagnostics)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	i.logger.Debug("Walked device", "device_id", id, "nodes", len(nodes),
		"diagnostics", len(report.Diagnostics), "duration", elapsed)

	ts := now()
	i.publish(events.DeviceInspectedEvent{
		DeviceID:    id,
		DataFlow:    report.DataFlow.String(),
		State:       report.State.String(),
		Nodes:       len(nodes),
		Connectors:  len(connectors),
		Properties:  len(report.Properties),
		Diagnostics: len(report.Diagnostics),
		DurationMs:  float64(elapsed.Microseconds()) / 1000,
		Cancelled:   err != nil && topology.IsCode(err, topology.ErrCodeCancelled),
		Timestamp:   ts,
	})
	for _, d := range report.Diagnostics {
		i.publish(events.DiagnosticEvent{
			DeviceID:  id,
			Code:      string(d.Code),
			Op:        d.Op,
			Location:  d.Location,
			Message:   d.Message,
			Timestamp: ts,
		})
	}
	return report, err
}

func (i *Inspector) publish(ev events.Event) {
	if i.bus != nil {
		i.bus.Publish(ev)
	}
}

func compact(reports []*topology.Report) []*topology.Report {
	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
