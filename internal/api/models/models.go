// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/audiotopo/internal/inspector"
	"github.com/smazurov/audiotopo/internal/topology"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-09T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type DevicesData struct {
	Devices []inspector.DeviceSummary `json:"devices" doc:"Devices matching the configured selection"`
	Count   int                       `json:"count" example:"3" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DevicesData
}

// Report models
type ReportRequest struct {
	DeviceID string `path:"device_id" example:"hda:card0:pcm0p" doc:"Endpoint identifier"`
}

type ReportResponse struct {
	Body *topology.Report
}

type ReportsData struct {
	Reports     []*topology.Report `json:"reports" doc:"One report per inspected device, in enumeration order"`
	Count       int                `json:"count" example:"3" doc:"Number of reports"`
	Diagnostics int                `json:"diagnostics" example:"1" doc:"Total diagnostics across all reports"`
}

type ReportsResponse struct {
	Body ReportsData
}

// Log models
type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int        `json:"count" example:"120" doc:"Number of entries"`
}

type LogEntry struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"inspector" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsResponse struct {
	Body LogsData
}

type LogLevelRequest struct {
	Module string `path:"module" example:"topology" doc:"Logger module name"`
	Body   struct {
		Level string `json:"level" example:"debug" doc:"New level for the module"`
	}
}

type LogLevelResponse struct {
	Body struct {
		Module string `json:"module" example:"topology" doc:"Logger module name"`
		Level  string `json:"level" example:"debug" doc:"Level now in effect"`
	}
}
