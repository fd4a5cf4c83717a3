package inspector

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/audiotopo/internal/events"
	"github.com/smazurov/audiotopo/internal/filter"
	"github.com/smazurov/audiotopo/internal/platform/fixture"
	"github.com/smazurov/audiotopo/internal/topology"
)

const homeTheater = `
[[device]]
id = "spk"
name = "Speakers"
flow = "render"
connectors = ["spk-pin"]

[[device]]
id = "mic"
name = "Desk Mic"
flow = "capture"
connectors = ["mic-pin"]

[[device]]
id = "hdmi"
name = "TV"
flow = "render"
state = "unplugged"
connectors = ["hdmi-pin"]

[[device]]
id = "broken"
name = "Broken Line Out"
flow = "render"
connectors = ["bad-pin"]

[[part]]
id = "spk-pin"
type = "connector"
connector_type = "physical_internal"
incoming = ["dac"]

[[part]]
id = "dac"
type = "connector"
connector_type = "software_io"

[[part]]
id = "mic-pin"
type = "connector"
connector_type = "physical_external"
outgoing = ["adc"]

[[part]]
id = "adc"
type = "connector"
connector_type = "software_io"

[[part]]
id = "hdmi-pin"
type = "connector"
connector_type = "physical_external"

[[part]]
id = "bad-pin"
type = "connector"
incoming = ["bad-mixer"]

[[part]]
id = "bad-mixer"
type = "subunit"
fail = ["name"]
`

func loadCatalog(t *testing.T, data string) *fixture.Catalog {
	t.Helper()
	f, err := fixture.Parse([]byte(data))
	require.NoError(t, err)
	return fixture.New(f)
}

func ids(summaries []DeviceSummary) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.ID
	}
	return out
}

func reportIDs(reports []*topology.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.DeviceID
	}
	return out
}

func mustFilter(t *testing.T, expr string) *filter.Filter {
	t.Helper()
	f, err := filter.Compile(expr)
	require.NoError(t, err)
	return f
}

func TestDevices(t *testing.T) {
	cat := loadCatalog(t, homeTheater)

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"defaults select active devices", DefaultConfig(), []string{"spk", "mic", "broken"}},
		{"zero state mask means active", Config{Flow: topology.All}, []string{"spk", "mic", "broken"}},
		{"render with every state", Config{Flow: topology.Render, States: topology.StateMaskAll}, []string{"spk", "hdmi", "broken"}},
		{"capture", Config{Flow: topology.Capture, States: topology.StateActive}, []string{"mic"}},
		{"filter on name", Config{Flow: topology.All, States: topology.StateMaskAll, Filter: mustFilter(t, `name.contains("Mic") || name == "TV"`)}, []string{"mic", "hdmi"}},
		{"filter on state", Config{Flow: topology.All, States: topology.StateMaskAll, Filter: mustFilter(t, `state == "unplugged"`)}, []string{"hdmi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(cat, tt.cfg, nil).Devices(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDevicesSummary(t *testing.T) {
	got, err := New(loadCatalog(t, homeTheater), DefaultConfig(), nil).Devices(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, DeviceSummary{ID: "spk", DataFlow: topology.Render, State: topology.StateActive, Name: "Speakers"}, got[0])
}

func TestDevicesToleratesUnreadableFields(t *testing.T) {
	cat := loadCatalog(t, `
[[device]]
id = "odd"
flow = "render"
connectors = []
fail = ["flow", "properties"]
`)
	got, err := New(cat, DefaultConfig(), nil).Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, topology.All, got[0].DataFlow)
	assert.Equal(t, "", got[0].Name)
}

func TestInspect(t *testing.T) {
	insp := New(loadCatalog(t, homeTheater), DefaultConfig(), nil)

	report, err := insp.Inspect(context.Background(), "spk")
	require.NoError(t, err)
	assert.Equal(t, "spk", report.DeviceID)
	require.Len(t, report.Roots, 1)
	assert.Equal(t, "spk-pin", report.Roots[0].Info.GlobalID)

	// Devices outside the configured selection can still be inspected by id.
	report, err = insp.Inspect(context.Background(), "hdmi")
	require.NoError(t, err)
	assert.Equal(t, topology.StateUnplugged, report.State)

	_, err = insp.Inspect(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, topology.IsCode(err, topology.ErrCodeDeviceNotFound))
}

func TestInspectAllKeepsGoingAfterFailures(t *testing.T) {
	insp := New(loadCatalog(t, homeTheater), DefaultConfig(), nil)

	reports, err := insp.InspectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"spk", "mic", "broken"}, reportIDs(reports))

	assert.False(t, reports[0].HasDiagnostics())
	require.True(t, reports[2].HasDiagnostics())
	assert.Equal(t, topology.ErrCodeReadFailure, reports[2].Diagnostics[0].Code)
}

// manyDevices builds a fixture with n render devices, each owning a short chain.
func manyDevices(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "[[device]]\nid = \"dev-%02d\"\nflow = \"render\"\nconnectors = [\"pin-%02d\"]\n\n", i, i)
	}
	for i := range n {
		fmt.Fprintf(&sb, "[[part]]\nid = \"pin-%02d\"\ntype = \"connector\"\nincoming = [\"mix-%02d\"]\n\n", i, i)
		fmt.Fprintf(&sb, "[[part]]\nid = \"mix-%02d\"\ntype = \"subunit\"\nincoming = [\"dac-%02d\"]\n\n", i, i)
		fmt.Fprintf(&sb, "[[part]]\nid = \"dac-%02d\"\ntype = \"connector\"\nconnector_type = \"software_io\"\n\n", i)
	}
	return sb.String()
}

func TestInspectAllParallelPreservesOrder(t *testing.T) {
	cat := loadCatalog(t, manyDevices(24))

	sequential, err := New(cat, DefaultConfig(), nil).InspectAll(context.Background())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Parallel = 6
	parallel, err := New(cat, cfg, nil).InspectAll(context.Background())
	require.NoError(t, err)

	require.Len(t, parallel, 24)
	assert.Equal(t, reportIDs(sequential), reportIDs(parallel))
	for i := range parallel {
		assert.Len(t, parallel[i].Nodes(), 3, parallel[i].DeviceID)
	}
}

type sequentialOnly struct {
	topology.Catalog
}

func (sequentialOnly) Reentrant() bool { return false }

func TestParallelism(t *testing.T) {
	cat := loadCatalog(t, homeTheater)
	cfg := DefaultConfig()
	cfg.Parallel = 4

	assert.Equal(t, 4, New(cat, cfg, nil).parallelism())
	assert.Equal(t, 1, New(sequentialOnly{cat}, cfg, nil).parallelism())
	assert.Equal(t, 1, New(cat, DefaultConfig(), nil).parallelism())
}

func TestInspectAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(loadCatalog(t, homeTheater), DefaultConfig(), nil).InspectAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %T", *new(T))
		panic("unreachable")
	}
}

func TestInspectPublishesEvents(t *testing.T) {
	bus := events.New()
	inspected := make(chan events.DeviceInspectedEvent, 8)
	diagnostics := make(chan events.DiagnosticEvent, 8)
	defer bus.Subscribe(func(e events.DeviceInspectedEvent) { inspected <- e })()
	defer bus.Subscribe(func(e events.DiagnosticEvent) { diagnostics <- e })()

	insp := New(loadCatalog(t, homeTheater), DefaultConfig(), bus)
	_, err := insp.Inspect(context.Background(), "broken")
	require.NoError(t, err)

	ev := receive(t, inspected)
	assert.Equal(t, "broken", ev.DeviceID)
	assert.Equal(t, "render", ev.DataFlow)
	assert.Equal(t, 1, ev.Nodes)
	assert.Equal(t, 1, ev.Diagnostics)

	diag := receive(t, diagnostics)
	assert.Equal(t, "broken", diag.DeviceID)
	assert.Equal(t, string(topology.ErrCodeReadFailure), diag.Code)
}

func TestSetCatalog(t *testing.T) {
	bus := events.New()
	reloaded := make(chan events.CatalogReloadedEvent, 2)
	defer bus.Subscribe(func(e events.CatalogReloadedEvent) { reloaded <- e })()

	insp := New(loadCatalog(t, homeTheater), DefaultConfig(), bus)
	next := loadCatalog(t, manyDevices(3))
	insp.SetCatalog(next, "many.toml")

	assert.Same(t, next, insp.Catalog())
	ev := receive(t, reloaded)
	assert.Equal(t, "many.toml", ev.Source)
	assert.Equal(t, 3, ev.Devices)

	devices, err := insp.Devices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 3)

	insp.ReloadFailed("many.toml", fmt.Errorf("bad toml"))
	ev = receive(t, reloaded)
	assert.Equal(t, "bad toml", ev.Error)
	assert.Same(t, next, insp.Catalog())
}
