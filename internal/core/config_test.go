package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0644); err != nil {
		t.Fatalf("error writing test config: %v", err)
	}
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port want = 8000, got = %d", cfg.Port)
	}
	if cfg.MaxConnections != 1024 {
		t.Errorf("MaxConnections want = 1024, got = %d", cfg.MaxConnections)
	}
	if cfg.Sweeper.IdleTimeout != 600*time.Second {
		t.Errorf("Sweeper.IdleTimeout want = 600s, got = %v", cfg.Sweeper.IdleTimeout)
	}
	if cfg.Sweeper.Window != 100 {
		t.Errorf("Sweeper.Window want = 100, got = %d", cfg.Sweeper.Window)
	}
	if cfg.Reactor.PollTimeout != 200*time.Millisecond {
		t.Errorf("Reactor.PollTimeout want = 200ms, got = %v", cfg.Reactor.PollTimeout)
	}
	if cfg.Chat.LineFraming {
		t.Error("Chat.LineFraming should default to false")
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := writeConfig(t, `
hostname: 127.0.0.1
port: 9001
max_connections: 16
sweeper:
  idle_timeout: 30s
  window: 4
chat:
  line_framing: true
credentials:
  source: file
  file: accounts.txt
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}

	if got := cfg.ListenAddress(); got != "127.0.0.1:9001" {
		t.Errorf("ListenAddress() want = 127.0.0.1:9001, got = %s", got)
	}
	if cfg.MaxConnections != 16 {
		t.Errorf("MaxConnections want = 16, got = %d", cfg.MaxConnections)
	}
	if cfg.Sweeper.IdleTimeout != 30*time.Second || cfg.Sweeper.Window != 4 {
		t.Errorf("Sweeper want = {30s 4}, got = {%v %d}", cfg.Sweeper.IdleTimeout, cfg.Sweeper.Window)
	}
	if !cfg.Chat.LineFraming {
		t.Error("Chat.LineFraming want = true")
	}
	if cfg.Credentials.Source != "file" || cfg.Credentials.File != "accounts.txt" {
		t.Errorf("Credentials want = {file accounts.txt}, got = {%s %s}", cfg.Credentials.Source, cfg.Credentials.File)
	}
	// Untouched keys keep their defaults.
	if cfg.Chat.ReceiveBufferSize != 8192 {
		t.Errorf("Chat.ReceiveBufferSize want = 8192, got = %d", cfg.Chat.ReceiveBufferSize)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("EPCHAT_SWEEPER_WINDOW", "7")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() returned an unexpected error: %v", err)
	}
	if cfg.Sweeper.Window != 7 {
		t.Errorf("Sweeper.Window want = 7, got = %d", cfg.Sweeper.Window)
	}
}

func TestLoadConfig_InvalidLimits(t *testing.T) {
	tests := map[string]string{
		"single_slot":         "max_connections: 1\n",
		"zero_buffer":         "chat:\n  receive_buffer_size: 0\n",
		"sub_ms_poll_timeout": "reactor:\n  poll_timeout: 500us\n",
		"zero_poll_timeout":   "reactor:\n  poll_timeout: 0s\n",
		"zero_sweeper_window": "sweeper:\n  window: 0\n",
	}
	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, contents)); err == nil {
				t.Fatalf("LoadConfig() expected an error for %q", contents)
			}
		})
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "testdb"
	cfg.Database.Username = "testuser"
	cfg.Database.Password = "testpassword"

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode="
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}
