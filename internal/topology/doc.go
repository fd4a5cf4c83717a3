// Package topology walks the routing graph of audio endpoints and extracts their metadata.
//
// # Overview
//
// A [Catalog] enumerates [Device] values. Each device exposes a [Topology] whose top-level
// connectors seed a depth-first walk, and a [PropertyStore] of flat key/value metadata.
// The package only consumes these interfaces; backends live under internal/platform.
//
// # Walking
//
//	report, err := topology.WalkDevice(ctx, dev, topology.WalkOptions{})
//	for _, n := range report.Nodes() {
//		fmt.Println(strings.Repeat("  ", n.Depth), n.Info.Name)
//	}
//
// Render endpoints are walked through incoming parts (from the physical jack back toward
// the stream), capture endpoints through outgoing parts. A connector reached during the
// walk ends its path; the seeds are always expanded.
//
// # Failures
//
// Reads that fail are recorded as [Diagnostic] values inside the [Report] and the walk
// continues with the next sibling. [WalkDevice] only returns an error when the context is
// cancelled, together with the partial report.
package topology
