// Package render writes reports and device listings as styled text, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/topology"
	"github.com/smazurov/audiotopo/internal/version"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Reports writes one or more device reports.
func Reports(w io.Writer, format Format, reports []*topology.Report) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, reports)
	case FormatYAML:
		return writeYAML(w, reports)
	default:
		for i, r := range reports {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, Text(r)); err != nil {
				return err
			}
		}
		return nil
	}
}

// Devices writes a device listing.
func Devices(w io.Writer, format Format, devices []inspector.DeviceSummary) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, devices)
	case FormatYAML:
		return writeYAML(w, devices)
	default:
		_, err := io.WriteString(w, DeviceTable(devices)+"\n")
		return err
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// Version writes build metadata.
func Version(w io.Writer, format Format, info version.Info) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, info)
	case FormatYAML:
		return writeYAML(w, info)
	default:
		_, err := fmt.Fprintf(w, "audiotopo %s\ncommit %s built %s\n%s %s\n",
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
		return err
	}
}
