package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	logCallback = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"topology": "debug",
			"api":      "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"topology", true, true, true},
		{"api", false, false, true},
		{"inspector", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("platform")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"platform": "debug"},
	})

	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Cached logger should have debug enabled after Initialize updates LevelVar")
	}
	if GetBuffer() == nil {
		t.Fatal("Initialize should create the ring buffer")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	handler := GetLogger("cli").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("cli should start at info")
	}
	if !SetModuleLevel("cli", "debug") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cli should log debug after SetModuleLevel")
	}
	if SetModuleLevel("cli", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestBufferAndCallback(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug", BufferSize: 3})

	var mu sync.Mutex
	var seen []string
	SetLogCallback(func(entry LogEntry) {
		mu.Lock()
		seen = append(seen, entry.Message)
		mu.Unlock()
	})
	defer SetLogCallback(nil)

	logger := GetLogger("inspector")
	for _, msg := range []string{"one", "two", "three", "four"} {
		logger.Info(msg, "device_id", "dev-1", "error", errors.New("boom"))
	}

	entries := GetBuffer().ReadAll()
	if len(entries) != 3 {
		t.Fatalf("buffer holds %d entries, want 3", len(entries))
	}
	if entries[0].Message != "two" || entries[2].Message != "four" {
		t.Errorf("unexpected buffer order: %q .. %q", entries[0].Message, entries[2].Message)
	}
	if entries[2].Module != "inspector" {
		t.Errorf("module = %q, want inspector", entries[2].Module)
	}
	if entries[2].Attributes["error"] != "boom" {
		t.Errorf("error attribute = %v, want boom", entries[2].Attributes["error"])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 4 {
		t.Errorf("callback saw %d entries, want 4", len(seen))
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
