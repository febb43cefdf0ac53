package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/config"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("rule set loaded", "name", "access-control", "rules", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "rule set loaded" {
		t.Errorf("msg = %v, want %q", entry["msg"], "rule set loaded")
	}
	if entry["name"] != "access-control" {
		t.Errorf("name = %v, want access-control", entry["name"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("evaluation complete", "outcome", "deny")

	out := buf.String()
	if !strings.Contains(out, "evaluation complete") || !strings.Contains(out, "outcome=deny") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Debug("suppressed")
	logger.Info("also suppressed")
	if buf.Len() != 0 {
		t.Errorf("low-level logs not suppressed: %s", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("warn log was suppressed")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(&config.LoggingConfig{Level: "chatty"}, nil); err == nil {
		t.Error("New() accepted unknown level")
	}
	if _, err := New(&config.LoggingConfig{Level: "info", Format: "xml"}, nil); err == nil {
		t.Error("New() accepted unknown format")
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if err := Setup(&config.LoggingConfig{Level: "info", Format: "json"}, &buf); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}

	slog.Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger not installed: %s", buf.String())
	}
}
