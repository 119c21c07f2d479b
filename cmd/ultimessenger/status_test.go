package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/typolo/ultimessenger/internal/bootstrap"
	"github.com/typolo/ultimessenger/internal/store"
	"github.com/typolo/ultimessenger/pkg/config"
)

func TestParseStatusArgs(t *testing.T) {
	tests := []struct {
		args     []string
		wantJSON bool
		wantErr  bool
	}{
		{nil, false, false},
		{[]string{"--json"}, true, false},
		{[]string{"-j"}, true, false},
		{[]string{"--bogus"}, false, true},
	}
	for _, tt := range tests {
		opts, err := parseStatusArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseStatusArgs(%v) error = %v, wantErr %t", tt.args, err, tt.wantErr)
		}
		if err == nil && opts.JSON != tt.wantJSON {
			t.Fatalf("parseStatusArgs(%v).JSON = %t, want %t", tt.args, opts.JSON, tt.wantJSON)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func seededConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := bootstrap.Run(st); err != nil {
		t.Fatalf("bootstrap.Run: %v", err)
	}
	st.Close()

	return &config.Config{Port: "8080", Environment: "test", DataDir: dir}
}

func TestRunStatusText(t *testing.T) {
	cfg := seededConfig(t)

	var out bytes.Buffer
	if err := runStatus(cfg, &out, nil); err != nil {
		t.Fatalf("runStatus: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Ultimate Messenger Status", "Users", "Conversations", "Stories"} {
		if !strings.Contains(text, want) {
			t.Fatalf("status output missing %q:\n%s", want, text)
		}
	}
}

func TestRunStatusJSON(t *testing.T) {
	cfg := seededConfig(t)

	var out bytes.Buffer
	if err := runStatus(cfg, &out, []string{"--json"}); err != nil {
		t.Fatalf("runStatus --json: %v", err)
	}

	var payload struct {
		StoreReady bool `json:"store_ready"`
		Metrics    struct {
			Users         int64 `json:"users"`
			Conversations int64 `json:"conversations"`
			Stories       int64 `json:"stories"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
	}
	if !payload.StoreReady {
		t.Fatalf("store_ready = false")
	}
	// Bootstrap seeds admin + botfather, the helper channel, and the guide story.
	if payload.Metrics.Users != 2 {
		t.Fatalf("users = %d, want 2", payload.Metrics.Users)
	}
	if payload.Metrics.Conversations != 1 {
		t.Fatalf("conversations = %d, want 1", payload.Metrics.Conversations)
	}
	if payload.Metrics.Stories != 1 {
		t.Fatalf("stories = %d, want 1", payload.Metrics.Stories)
	}
}
