package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// speakerChain builds jack <- volume <- dac in the incoming direction.
func speakerChain() (*fakePart, *fakePart, *fakePart) {
	jack := connector("jack", PhysicalExternal)
	volume := subunit("volume")
	dac := connector("dac", SoftwareIO)
	jack.incoming = []*fakePart{volume}
	volume.incoming = []*fakePart{dac}
	return jack, volume, dac
}

func walkOne(t *testing.T, flow DataFlow, opts WalkOptions, seeds ...*fakePart) ([]*Node, []Diagnostic) {
	t.Helper()
	roots, diags, err := Walk(context.Background(), seedsOf(seeds...), flow, StateActive, opts)
	require.NoError(t, err)
	return roots, diags
}

func TestWalkRenderChain(t *testing.T) {
	jack, _, _ := speakerChain()

	roots, diags := walkOne(t, Render, WalkOptions{}, jack)
	require.Len(t, roots, 1)
	assert.Empty(t, diags)

	report := &Report{Roots: roots}
	nodes := report.Nodes()
	assert.Equal(t, []string{"jack", "volume", "dac"}, names(nodes))
	assert.Equal(t, []int{0, 1, 2}, []int{nodes[0].Depth, nodes[1].Depth, nodes[2].Depth})

	require.NotNil(t, nodes[0].Connector, "seed carries a connector record")
	assert.Equal(t, PhysicalExternal, nodes[0].Connector.Kind)
	assert.Nil(t, nodes[1].Connector)

	dac := nodes[2]
	require.NotNil(t, dac.Connector)
	assert.Equal(t, SoftwareIO, dac.Connector.Kind)
	assert.Nil(t, dac.Connector.Peer)
	assert.Empty(t, dac.Children)
	assert.Same(t, nodes[1], dac.Parent())
}

func TestWalkDirectionFollowsFlow(t *testing.T) {
	mic := connector("mic", PhysicalExternal)
	in := subunit("in-path")
	out := subunit("out-path")
	mic.incoming = []*fakePart{in}
	mic.outgoing = []*fakePart{out}

	tests := []struct {
		name string
		flow DataFlow
		want []string
	}{
		{"render walks incoming", Render, []string{"mic", "in-path"}},
		{"capture walks outgoing", Capture, []string{"mic", "out-path"}},
		{"all walks outgoing", All, []string{"mic", "out-path"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots, diags := walkOne(t, tt.flow, WalkOptions{}, mic)
			assert.Empty(t, diags)
			assert.Equal(t, tt.want, names((&Report{Roots: roots}).Nodes()))
		})
	}
}

func TestWalkPreOrderSiblings(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	a, b := subunit("a"), subunit("b")
	a1, a2 := subunit("a1"), subunit("a2")
	b1 := connector("b1", SoftwareIO)
	seed.incoming = []*fakePart{a, b}
	a.incoming = []*fakePart{a1, a2}
	b.incoming = []*fakePart{b1}

	var visited []string
	roots, diags := walkOne(t, Render, WalkOptions{OnVisit: func(n *Node) {
		visited = append(visited, n.Info.Name)
	}}, seed)

	assert.Empty(t, diags)
	want := []string{"seed", "a", "a1", "a2", "b", "b1"}
	assert.Equal(t, want, names((&Report{Roots: roots}).Nodes()))
	assert.Equal(t, want, visited, "OnVisit sees nodes in visit order")
}

func TestWalkSeedIsNeverTerminal(t *testing.T) {
	seed := connector("seed", SoftwareIO)
	seed.incoming = []*fakePart{subunit("mixer")}

	roots, _ := walkOne(t, Render, WalkOptions{}, seed)
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].Children, 1)
}

func TestWalkConnectorChildTerminates(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	dac := connector("dac", SoftwareIO)
	behind := subunit("behind")
	seed.incoming = []*fakePart{dac}
	dac.incoming = []*fakePart{behind}

	roots, _ := walkOne(t, Render, WalkOptions{}, seed)
	assert.Equal(t, []string{"seed", "dac"}, names((&Report{Roots: roots}).Nodes()))
}

func TestWalkCycle(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	a, b := subunit("a"), subunit("b")
	seed.incoming = []*fakePart{a}
	a.incoming = []*fakePart{b}
	b.incoming = []*fakePart{a}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	assert.Equal(t, []string{"seed", "a", "b"}, names((&Report{Roots: roots}).Nodes()))
	assert.Equal(t, []ErrorCode{ErrCodeCycleDetected}, codes(diags))
}

func TestWalkConvergingPathsVisitOnce(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	a, b, shared := subunit("a"), subunit("b"), subunit("shared")
	seed.incoming = []*fakePart{a, b}
	a.incoming = []*fakePart{shared}
	b.incoming = []*fakePart{shared}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"seed", "a", "shared", "b"}, names((&Report{Roots: roots}).Nodes()))
}

func TestWalkConvergingPathsReportOnce(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	a, b, shared := subunit("a"), subunit("b"), subunit("shared")
	seed.incoming = []*fakePart{a, b}
	a.incoming = []*fakePart{shared}
	b.incoming = []*fakePart{shared}
	shared.controls = []ControlInterface{{IID: uuid.New(), Name: "gain"}}
	shared.fail = map[string]bool{"control:0": true}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	assert.Equal(t, []string{"seed", "a", "shared", "b"}, names((&Report{Roots: roots}).Nodes()))
	require.Len(t, diags, 1)
	assert.Equal(t, ErrCodeReadFailure, diags[0].Code)
	assert.Equal(t, "a/incoming[0]", diags[0].Location)
}

func TestWalkVisitedSetIsPerSeed(t *testing.T) {
	shared := subunit("shared")
	left := connector("left", PhysicalExternal)
	right := connector("right", PhysicalExternal)
	left.incoming = []*fakePart{shared}
	right.incoming = []*fakePart{shared}

	roots, diags := walkOne(t, Render, WalkOptions{}, left, right)
	assert.Empty(t, diags)
	require.Len(t, roots, 2)
	assert.Equal(t, []string{"left", "shared", "right", "shared"}, names((&Report{Roots: roots}).Nodes()))
}

func TestWalkDepthGuard(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	prev := seed
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		next := subunit(id)
		prev.incoming = []*fakePart{next}
		prev = next
	}

	roots, diags := walkOne(t, Render, WalkOptions{MaxDepth: 2}, seed)
	assert.Equal(t, []string{"seed", "s1", "s2"}, names((&Report{Roots: roots}).Nodes()))
	assert.Equal(t, []ErrorCode{ErrCodeDepthExceeded}, codes(diags))
}

func TestWalkDepthGuardSkipsChildReads(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	s1, s2 := subunit("s1"), subunit("s2")
	beyond := subunit("beyond")
	beyond.fail = map[string]bool{"type": true}
	seed.incoming = []*fakePart{s1}
	s1.incoming = []*fakePart{s2}
	s2.incoming = []*fakePart{beyond}

	roots, diags := walkOne(t, Render, WalkOptions{MaxDepth: 2}, seed)
	assert.Equal(t, []string{"seed", "s1", "s2"}, names((&Report{Roots: roots}).Nodes()))
	require.Equal(t, []ErrorCode{ErrCodeDepthExceeded}, codes(diags))
	assert.Equal(t, "s2", diags[0].Location)
}

func TestWalkLocalFailuresDoNotAbortSiblings(t *testing.T) {
	tests := []struct {
		name  string
		setup func(bad *fakePart)
		code  ErrorCode
	}{
		{"name read", func(bad *fakePart) { bad.fail = map[string]bool{"name": true} }, ErrCodeReadFailure},
		{"part type read", func(bad *fakePart) { bad.fail = map[string]bool{"type": true} }, ErrCodeReadFailure},
		{"connector kind read", func(bad *fakePart) {
			bad.ptype = PartConnector
			bad.fail = map[string]bool{"kind": true}
		}, ErrCodeReadFailure},
		{"connector cast", func(bad *fakePart) {
			bad.ptype = PartConnector
			bad.noCast = true
		}, ErrCodeCastFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := connector("seed", PhysicalExternal)
			bad := subunit("bad")
			tt.setup(bad)
			seed.incoming = []*fakePart{subunit("before"), bad, subunit("after")}

			roots, diags := walkOne(t, Render, WalkOptions{}, seed)
			assert.Equal(t, []string{"seed", "before", "after"}, names((&Report{Roots: roots}).Nodes()))
			assert.Equal(t, []ErrorCode{tt.code}, codes(diags))
		})
	}
}

func TestWalkChildListFailure(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	seed.incoming = []*fakePart{subunit("a")}
	seed.fail = map[string]bool{"incoming": true}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Children)
	assert.Equal(t, []ErrorCode{ErrCodeReadFailure}, codes(diags))
}

func TestWalkPeer(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	dac := connector("dac", SoftwareIO)
	stream := connector("stream", SoftwareIO)
	dac.peer = stream
	seed.incoming = []*fakePart{dac}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	assert.Empty(t, diags)
	nodes := (&Report{Roots: roots}).Nodes()
	require.Len(t, nodes, 2)
	require.NotNil(t, nodes[1].Connector.Peer)
	assert.Equal(t, PeerInfo{Name: "stream", GlobalID: "stream"}, *nodes[1].Connector.Peer)
	assert.Nil(t, nodes[0].Connector.Peer)
}

func TestWalkPeerReadFailureIsDiagnostic(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	dac := connector("dac", SoftwareIO)
	dac.fail = map[string]bool{"peer": true}
	seed.incoming = []*fakePart{dac}

	roots, diags := walkOne(t, Render, WalkOptions{}, seed)
	nodes := (&Report{Roots: roots}).Nodes()
	require.Len(t, nodes, 2)
	assert.Nil(t, nodes[1].Connector.Peer)
	assert.Equal(t, []ErrorCode{ErrCodeReadFailure}, codes(diags))
}

func TestWalkFollowPeer(t *testing.T) {
	jack := connector("jack", PhysicalExternal)
	host := connector("host", SoftwareIO)
	host.incoming = []*fakePart{subunit("mixer")}
	jack.peer = host
	lone := connector("lone", PhysicalInternal)

	roots, diags := walkOne(t, Render, WalkOptions{FollowPeer: true}, jack, lone)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"host", "mixer", "lone"}, names((&Report{Roots: roots}).Nodes()))
}

func TestWalkCancellation(t *testing.T) {
	seed := connector("seed", PhysicalExternal)
	seed.incoming = []*fakePart{subunit("a"), subunit("b")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	roots, _, err := Walk(ctx, seedsOf(seed), Render, StateActive, WalkOptions{
		OnVisit: func(n *Node) {
			if n.Info.Name == "a" {
				cancel()
			}
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, IsCode(err, ErrCodeCancelled))
	assert.Equal(t, []string{"seed", "a"}, names((&Report{Roots: roots}).Nodes()))
}

func TestWalkIsRepeatable(t *testing.T) {
	jack, _, _ := speakerChain()

	first, d1 := walkOne(t, Render, WalkOptions{}, jack)
	second, d2 := walkOne(t, Render, WalkOptions{}, jack)
	assert.Equal(t, names((&Report{Roots: first}).Nodes()), names((&Report{Roots: second}).Nodes()))
	assert.Equal(t, d1, d2)
}
