package topology

// Node is one visited topology node in a report tree.
type Node struct {
	Info      NodeInfo       `json:"info" yaml:"info"`
	Depth     int            `json:"depth" yaml:"depth"`
	Connector *ConnectorInfo `json:"connector,omitempty" yaml:"connector,omitempty"`
	Children  []*Node        `json:"children,omitempty" yaml:"children,omitempty"`

	parent *Node
}

// Parent returns the node this node was discovered from, nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsConnector reports whether the node is tagged as a connector.
func (n *Node) IsConnector() bool {
	return n.Info.PartType == PartConnector
}

// hasAncestor reports whether globalID appears on the chain from n up to its root.
func (n *Node) hasAncestor(globalID string) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Info.GlobalID == globalID {
			return true
		}
	}
	return false
}

// Report is the result of walking one device. DataFlow is All when the device's flow
// could not be read.
type Report struct {
	DeviceID    string          `json:"device_id" yaml:"device_id"`
	DataFlow    DataFlow        `json:"data_flow" yaml:"data_flow"`
	State       DeviceState     `json:"state" yaml:"state"`
	Properties  []PropertyEntry `json:"properties" yaml:"properties"`
	Roots       []*Node         `json:"roots" yaml:"roots"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Nodes returns every node of the report forest in depth-first pre-order.
func (r *Report) Nodes() []*Node {
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, root := range r.Roots {
		visit(root)
	}
	return out
}

// Connectors returns the connector nodes of the report in pre-order.
func (r *Report) Connectors() []*Node {
	var out []*Node
	for _, n := range r.Nodes() {
		if n.Connector != nil {
			out = append(out, n)
		}
	}
	return out
}

// HasDiagnostics reports whether any failure was recorded.
func (r *Report) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}

// Property returns the entry with the given key.
func (r *Report) Property(key PropertyKey) (PropertyEntry, bool) {
	for _, p := range r.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return PropertyEntry{}, false
}
