package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/audiotopo/internal/logging"
)

// DefaultMaxDepth bounds the walk when WalkOptions.MaxDepth is zero.
const DefaultMaxDepth = 64

// WalkOptions tunes a topology walk.
type WalkOptions struct {
	// MaxDepth is the deepest level that is still expanded. Zero means DefaultMaxDepth.
	MaxDepth int
	// FollowPeer seeds each walk from the peer of a top-level connector when it has one.
	FollowPeer bool
	// OnVisit is called once per visited node, in visit order.
	OnVisit func(n *Node)
	// Logger defaults to the "topology" module logger.
	Logger *slog.Logger
}

func (o WalkOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o WalkOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.GetLogger("topology")
}

// frame is one pending visit on the worklist.
type frame struct {
	part      Part
	connector Connector
	kind      ConnectorType
	terminal  bool
	depth     int
	parent    *Node
	location  string
}

type walker struct {
	flow   DataFlow
	state  DeviceState
	opts   WalkOptions
	logger *slog.Logger
	diags  []Diagnostic
}

// Walk traverses the topology reachable from each seed and returns one root per seed
// that could be described. Render devices are expanded through incoming parts, every other
// flow through outgoing parts. Local failures are returned as diagnostics. The only error
// is a cancellation, returned together with everything visited so far.
func Walk(ctx context.Context, seeds []Connector, flow DataFlow, state DeviceState, opts WalkOptions) ([]*Node, []Diagnostic, error) {
	w := &walker{
		flow:   flow,
		state:  state,
		opts:   opts,
		logger: opts.logger(),
	}

	var roots []*Node
	for i, seed := range seeds {
		root, err := w.walkSeed(ctx, seed, fmt.Sprintf("connector[%d]", i))
		if root != nil {
			roots = append(roots, root)
		}
		if err != nil {
			return roots, w.diags, err
		}
	}
	return roots, w.diags, nil
}

func (w *walker) record(err error) {
	d := Diagnose(err)
	w.logger.Warn("Topology read failed", "code", d.Code, "op", d.Op, "location", d.Location, "error", d.Message)
	w.diags = append(w.diags, d)
}

func (w *walker) cancelled(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return newError(ErrCodeCancelled, "walk", location, err)
	}
	return nil
}

func (w *walker) walkSeed(ctx context.Context, seed Connector, location string) (*Node, error) {
	if w.opts.FollowPeer {
		peer, err := seed.ConnectedTo()
		switch {
		case err == nil && peer != nil:
			seed = peer
		case err != nil && !errors.Is(err, ErrNotConnected):
			w.record(newError(ErrCodeReadFailure, "read peer of seed", location, err))
		}
	}

	kind, err := seed.Kind()
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "read connector kind", location, err))
		kind = ConnectorUnknown
	}

	var root *Node
	visited := make(map[string]bool)
	stack := []frame{{part: seed, connector: seed, kind: kind, location: location}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := w.cancelled(ctx, f.location); err != nil {
			return root, err
		}

		info, diags, err := Describe(ctx, f.part, f.location)
		if err != nil {
			w.diags = append(w.diags, diags...)
			if IsCode(err, ErrCodeCancelled) {
				return root, err
			}
			w.record(err)
			continue
		}

		if visited[info.GlobalID] {
			if f.parent != nil && f.parent.hasAncestor(info.GlobalID) {
				w.record(newError(ErrCodeCycleDetected, "visit", f.location,
					fmt.Errorf("part %s is its own ancestor", info.GlobalID)))
			} else {
				w.logger.Debug("Skipping part reached through converging paths", "global_id", info.GlobalID)
			}
			continue
		}
		visited[info.GlobalID] = true
		w.diags = append(w.diags, diags...)

		node := &Node{Info: info, Depth: f.depth, parent: f.parent}
		if f.parent == nil {
			root = node
		} else {
			f.parent.Children = append(f.parent.Children, node)
		}
		if f.connector != nil {
			node.Connector = &ConnectorInfo{Kind: f.kind, Peer: w.peer(f.connector, info.GlobalID)}
		}

		w.logger.Debug("Visited part",
			"name", info.Name,
			"global_id", info.GlobalID,
			"depth", f.depth,
			"flow", w.flow,
			"state", w.state)
		if w.opts.OnVisit != nil {
			w.opts.OnVisit(node)
		}

		if f.terminal {
			continue
		}

		if err := w.cancelled(ctx, info.GlobalID); err != nil {
			return root, err
		}

		list, count := w.children(f.part, info.GlobalID)
		if count == 0 {
			continue
		}
		if f.depth >= w.opts.maxDepth() {
			w.record(newError(ErrCodeDepthExceeded, "expand", info.GlobalID,
				fmt.Errorf("depth %d reached with %d pending children", f.depth, count)))
			continue
		}
		children := w.frames(list, count, node)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return root, nil
}

// peer resolves the connector a connector is wired to. Nil means unconnected or unreadable.
func (w *walker) peer(c Connector, location string) *PeerInfo {
	other, err := c.ConnectedTo()
	if errors.Is(err, ErrNotConnected) || (err == nil && other == nil) {
		return nil
	}
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "read peer", location, err))
		return nil
	}
	name, err := other.Name()
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "read peer name", location, err))
		return nil
	}
	id, err := other.GlobalID()
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "read peer global id", location, err))
		return nil
	}
	return &PeerInfo{Name: name, GlobalID: id}
}

func (w *walker) direction() string {
	if w.flow == Render {
		return "incoming"
	}
	return "outgoing"
}

// children opens the child list of part in the walk direction and counts it. A zero count
// means there is nothing to expand, including when the list cannot be read.
func (w *walker) children(part Part, location string) (PartList, int) {
	dir := w.direction()

	var list PartList
	var err error
	if w.flow == Render {
		list, err = part.IncomingParts()
	} else {
		list, err = part.OutgoingParts()
	}
	if errors.Is(err, ErrNoParts) {
		return nil, 0
	}
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "list "+dir+" parts", location, err))
		return nil, 0
	}
	if list == nil {
		return nil, 0
	}

	count, err := list.Count()
	if err != nil {
		w.record(newError(ErrCodeReadFailure, "count "+dir+" parts", location, err))
		return nil, 0
	}
	return list, count
}

// frames reads the first count entries of list into stack frames, in platform order.
func (w *walker) frames(list PartList, count int, node *Node) []frame {
	dir := w.direction()
	location := node.Info.GlobalID

	children := make([]frame, 0, count)
	for i := 0; i < count; i++ {
		childLoc := fmt.Sprintf("%s/%s[%d]", location, dir, i)

		child, err := list.At(i)
		if err != nil {
			w.record(newError(ErrCodeReadFailure, "read part", childLoc, err))
			continue
		}
		pt, err := child.PartType()
		if err != nil {
			w.record(newError(ErrCodeReadFailure, "read part type", childLoc, err))
			continue
		}

		f := frame{part: child, depth: node.Depth + 1, parent: node, location: childLoc}
		if pt == PartConnector {
			conn, ok := child.(Connector)
			if !ok {
				w.record(newError(ErrCodeCastFailure, "cast to connector", childLoc,
					errors.New("part is tagged as connector but has no connector capability")))
				continue
			}
			kind, err := conn.Kind()
			if err != nil {
				w.record(newError(ErrCodeReadFailure, "read connector kind", childLoc, err))
				continue
			}
			f.connector = conn
			f.kind = kind
			f.terminal = true
		}
		children = append(children, f)
	}
	return children
}
