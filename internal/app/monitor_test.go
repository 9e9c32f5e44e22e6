package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/elemental-live/internal/config"
	"github.com/samvad-hq/elemental-live/pkg/publishers"
)

const deviceListXML = `<?xml version="1.0" encoding="UTF-8"?>
<device_list>
  <device href="/devices/1">
    <id>1</id>
    <device_name>HD-SDI 1</device_name>
    <device_type>AJA</device_type>
    <channel>1</channel>
    <quad>false</quad>
  </device>
</device_list>`

const activeEventsXML = `<?xml version="1.0" encoding="UTF-8"?>
<live_event_list>
  <live_event href="/live_events/7">
    <id>7</id>
    <name>morning</name>
    <status>running</status>
    <input>
      <device_input>
        <device_name>HD-SDI 1</device_name>
      </device_input>
    </input>
  </live_event>
</live_event_list>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNewMonitorRequiresConfig(t *testing.T) {
	if _, err := NewMonitor(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewMonitorRequiresEnabledPublisher(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		EncodersFile: writeFile(t, dir, "encoders.yaml", "encoders:\n  - id: enc\n    base_url: http://127.0.0.1:1\n"),
		PublishersFile: writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: hook
    type: http
    enabled: false
    http:
      url: http://127.0.0.1:1
`),
		StorageType:  "none",
		PollInterval: time.Minute,
	}
	if _, err := NewMonitor(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error when no publisher is enabled")
	}
}

func TestMonitorRunOncePublishesToWebhook(t *testing.T) {
	encoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/devices":
			fmt.Fprint(w, deviceListXML)
		case "/live_events":
			fmt.Fprint(w, activeEventsXML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer encoder.Close()

	var mu sync.Mutex
	var received []publishers.Transition
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Transition
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer hook.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		EncodersFile:   writeFile(t, dir, "encoders.yaml", fmt.Sprintf("encoders:\n  - id: studio\n    name: Studio\n    base_url: %s\n", encoder.URL)),
		PublishersFile: writeFile(t, dir, "publishers.yaml", fmt.Sprintf("publishers:\n  - id: hook\n    type: http\n    http:\n      url: %s\n", hook.URL)),
		StorageType:    "bbolt",
		BBoltPath:      filepath.Join(dir, "state.db"),
		PollInterval:   time.Minute,
	}

	m, err := NewMonitor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.close()

	encs := m.encoderReg.Enabled()
	if err := m.runOnce(context.Background(), encs); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if err := m.runOnce(context.Background(), encs); err != nil {
		t.Fatalf("second runOnce: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 events across both passes, got %d", len(received))
	}
	byKind := map[string]publishers.Transition{}
	for _, evt := range received {
		byKind[evt.Kind] = evt
	}
	if dev := byKind[publishers.KindDeviceAvailability]; dev.SubjectID != "1" || dev.Current != "in_use" {
		t.Fatalf("unexpected device event %#v", dev)
	}
	if evt := byKind[publishers.KindEventStatus]; evt.SubjectID != "7" || evt.Current != "running" || evt.EncoderName != "Studio" {
		t.Fatalf("unexpected live event %#v", evt)
	}
}

func TestMonitorRunReturnsOnCancel(t *testing.T) {
	dir := t.TempDir()
	disabled := "encoders:\n  - id: enc\n    base_url: http://127.0.0.1:1\n    enabled: false\n"
	cfg := &config.Config{
		EncodersFile:   writeFile(t, dir, "encoders.yaml", disabled),
		PublishersFile: writeFile(t, dir, "publishers.yaml", "publishers:\n  - id: hook\n    type: http\n    http:\n      url: http://127.0.0.1:1\n"),
		StorageType:    "none",
		PollInterval:   time.Minute,
	}
	m, err := NewMonitor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
