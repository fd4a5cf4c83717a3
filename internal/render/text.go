package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/platform/wellknown"
	"github.com/smazurov/audiotopo/internal/topology"
)

const (
	colorCyan    = "#8BE9FD"
	colorGreen   = "#50FA7B"
	colorOrange  = "#FFB86C"
	colorPink    = "#FF79C6"
	colorPurple  = "#BD93F9"
	colorRed     = "#FF5555"
	colorComment = "#6272A4"
)

type styles struct {
	title, device, connector, subunit, detail, key, diagnostic, branch, border lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPink)).
			Bold(true),
		device: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		connector: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)).
			Bold(true),
		subunit: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)),
		detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		key: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
		diagnostic: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)),
		branch: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)).
			MarginRight(1),
		border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)),
	}
}

// Text renders a report as a tree of its topology followed by its properties and
// diagnostics.
func Text(r *topology.Report) string {
	st := newStyles()

	var sb strings.Builder
	name := r.DeviceID
	if p, ok := friendlyName(r); ok {
		name = p
	}
	sb.WriteString(st.title.Render(name))
	sb.WriteString(" ")
	sb.WriteString(st.device.Render(fmt.Sprintf("%s · %s · %s", r.DeviceID, r.DataFlow, r.State)))
	sb.WriteString("\n")

	if len(r.Roots) > 0 {
		t := tree.New().
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(st.branch)
		for _, root := range r.Roots {
			t.Child(nodeTree(st, root))
		}
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}

	if len(r.Properties) > 0 {
		sb.WriteString(st.title.Render("Properties"))
		sb.WriteString("\n")
		for _, p := range r.Properties {
			label := p.DisplayName
			if label == "" {
				label = p.Key.String()
			}
			fmt.Fprintf(&sb, "  %s = %s\n", st.key.Render(label), p.Value)
		}
	}

	if len(r.Diagnostics) > 0 {
		sb.WriteString(st.title.Render("Diagnostics"))
		sb.WriteString("\n")
		for _, d := range r.Diagnostics {
			sb.WriteString("  ")
			sb.WriteString(st.diagnostic.Render(d.String()))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func friendlyName(r *topology.Report) (string, bool) {
	p, ok := r.Property(wellknown.DeviceFriendlyName)
	if !ok || p.Value == "" {
		return "", false
	}
	return p.Value, true
}

// nodeTree returns a leaf label for nodes without children and a subtree otherwise.
func nodeTree(st styles, n *topology.Node) any {
	label := nodeLabel(st, n)
	if len(n.Children) == 0 {
		return label
	}
	t := tree.Root(label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(st.branch)
	for _, c := range n.Children {
		t.Child(nodeTree(st, c))
	}
	return t
}

func nodeLabel(st styles, n *topology.Node) string {
	var sb strings.Builder
	if n.Connector != nil {
		sb.WriteString(st.connector.Render(n.Info.Name))
		sb.WriteString(st.detail.Render(fmt.Sprintf(" [%s]", n.Connector.Kind)))
	} else {
		sb.WriteString(st.subunit.Render(n.Info.Name))
		sb.WriteString(st.detail.Render(fmt.Sprintf(" [%s]", n.Info.PartType)))
	}
	sb.WriteString(st.detail.Render(fmt.Sprintf(" %s #%d", n.Info.GlobalID, n.Info.LocalID)))

	if n.Connector != nil && n.Connector.Peer != nil {
		sb.WriteString(st.key.Render(" → " + n.Connector.Peer.Name))
	}
	if v := n.Info.Volume; v != nil && len(v.Channels) > 0 {
		levels := make([]string, len(v.Channels))
		for i, ch := range v.Channels {
			levels[i] = fmt.Sprintf("%.2f", ch.LevelDB)
		}
		sb.WriteString(st.key.Render(fmt.Sprintf(" %s dB", strings.Join(levels, "/"))))
	}
	if n.Info.Muted != nil && *n.Info.Muted {
		sb.WriteString(st.diagnostic.Render(" muted"))
	}
	for _, c := range n.Info.ControlInterfaces {
		sb.WriteString(st.detail.Render(" ‹" + c.Name + "›"))
	}
	return sb.String()
}

// DeviceTable renders a device listing as a table.
func DeviceTable(devices []inspector.DeviceSummary) string {
	st := newStyles()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		Headers("ID", "FLOW", "STATE", "NAME").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, d := range devices {
		t.Row(d.ID, d.DataFlow.String(), d.State.String(), d.Name)
	}
	return t.String()
}
