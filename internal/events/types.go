package events

// Event type constants for kelindar/event.
const (
	TypeDeviceInspected uint32 = iota + 1
	TypeDiagnostic
	TypeCatalogReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceInspectedEvent is published after every device walk.
type DeviceInspectedEvent struct {
	DeviceID    string  `json:"device_id" example:"hda:card0:pcm0p" doc:"Endpoint identifier"`
	DataFlow    string  `json:"data_flow" example:"render" doc:"Data flow of the endpoint"`
	State       string  `json:"state" example:"active" doc:"Endpoint state"`
	Nodes       int     `json:"nodes" example:"16" doc:"Number of visited topology nodes"`
	Connectors  int     `json:"connectors" example:"5" doc:"Number of connector nodes"`
	Properties  int     `json:"properties" example:"9" doc:"Number of extracted properties"`
	Diagnostics int     `json:"diagnostics" example:"0" doc:"Number of recorded diagnostics"`
	DurationMs  float64 `json:"duration_ms" example:"1.25" doc:"Walk duration in milliseconds"`
	Cancelled   bool    `json:"cancelled,omitempty" doc:"Whether the walk was cancelled"`
	Timestamp   string  `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceInspectedEvent.
func (e DeviceInspectedEvent) Type() uint32 { return TypeDeviceInspected }

// DiagnosticEvent carries one failure recorded during a walk.
type DiagnosticEvent struct {
	DeviceID  string `json:"device_id" example:"hda:card0:pcm0p" doc:"Endpoint identifier"`
	Code      string `json:"code" example:"READ_FAILURE" doc:"Diagnostic code"`
	Op        string `json:"op" example:"read name" doc:"Failed operation"`
	Location  string `json:"location,omitempty" example:"hda:card0:codec0:0x14" doc:"Path of the failing node"`
	Message   string `json:"message" doc:"Failure detail"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DiagnosticEvent.
func (e DiagnosticEvent) Type() uint32 { return TypeDiagnostic }

// CatalogReloadedEvent is published when the device catalog is replaced, or when a
// replacement failed to load.
type CatalogReloadedEvent struct {
	Source    string `json:"source" example:"/etc/audiotopo/fixture.toml" doc:"Where the catalog was loaded from"`
	Devices   int    `json:"devices" example:"3" doc:"Number of devices in the new catalog"`
	Error     string `json:"error,omitempty" doc:"Load error, if the reload failed"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CatalogReloadedEvent.
func (e CatalogReloadedEvent) Type() uint32 { return TypeCatalogReloaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"inspector" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
