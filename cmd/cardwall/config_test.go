package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/cardwall/internal/cards"
)

func TestLoadConfig_AddressResolution(t *testing.T) {
	resetCardwallEnv(t)

	tests := []struct {
		name        string
		configYAML  string
		wantHost    string
		wantAPIAddr string
	}{
		{
			name:        "defaults to localhost host",
			configYAML:  "api-port: 3100",
			wantHost:    "127.0.0.1",
			wantAPIAddr: "127.0.0.1:3100",
		},
		{
			name: "host applies to derived api address",
			configYAML: `
host: 0.0.0.0
api-port: 3200
`,
			wantHost:    "0.0.0.0",
			wantAPIAddr: "0.0.0.0:3200",
		},
		{
			name: "explicit address overrides host and port",
			configYAML: `
host: 0.0.0.0
api-port: 3300
api-addr: 10.0.0.5:8888
`,
			wantHost:    "0.0.0.0",
			wantAPIAddr: "10.0.0.5:8888",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if cfg.Host != tt.wantHost {
				t.Fatalf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.APIAddr != tt.wantAPIAddr {
				t.Fatalf("APIAddr = %q, want %q", cfg.APIAddr, tt.wantAPIAddr)
			}
		})
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	resetCardwallEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		errSubstring string
	}{
		{"api port out of range", "api-port: 70000", "invalid api-port"},
		{"negative retention", "outcome-retention: -1", "invalid outcome-retention"},
		{"negative per-card keep", "outcome-keep-per-card: -1", "invalid outcome-keep-per-card"},
		{"unknown log level", "log-level: chatty", "invalid log-level"},
		{"refresh rate without burst", "refresh-rate: 3\nrefresh-burst: 0", "invalid refresh-burst"},
		{
			name: "card without id",
			configYAML: `
cards:
  - kind: clock
`,
			errSubstring: "id is required",
		},
		{
			name: "duplicate card ids",
			configYAML: `
cards:
  - id: clock
    kind: clock
  - id: clock
    kind: bulletin
`,
			errSubstring: `duplicate id "clock"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSubstring) {
				t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
			}
		})
	}
}

func TestLoadConfig_Cards(t *testing.T) {
	resetCardwallEnv(t)

	cfg, err := loadConfig(writeTempConfig(t, `
cards:
  - id: news
    kind: bulletin
    title: Newsroom
    subtitle: wire
    interval: 15m
    feed-url: http://127.0.0.1:9000/items
    cache-ttl: 1m
  - id: tick
    kind: clock
    interval: 2s
`))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	want := []cards.Spec{
		{ID: "news", Kind: "bulletin", Title: "Newsroom", Subtitle: "wire", Interval: 15 * time.Minute,
			FeedURL: "http://127.0.0.1:9000/items", CacheTTL: time.Minute},
		{ID: "tick", Kind: "clock", Interval: 2 * time.Second},
	}
	if diff := cmp.Diff(want, cfg.Cards); diff != "" {
		t.Errorf("cards mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_DefaultCards(t *testing.T) {
	resetCardwallEnv(t)

	cfg, err := loadConfig(writeTempConfig(t, "api-port: 3000"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if len(cfg.Cards) != len(cards.DefaultSpecs()) {
		t.Fatalf("cards = %d, want the default set", len(cfg.Cards))
	}
	if cfg.OutcomeRetention != defaultOutcomeRetention {
		t.Errorf("retention = %d, want %d", cfg.OutcomeRetention, defaultOutcomeRetention)
	}
	if cfg.OutcomeKeep != defaultOutcomeKeep {
		t.Errorf("keep per card = %d, want %d", cfg.OutcomeKeep, defaultOutcomeKeep)
	}
	if cfg.ConfigPath == "" {
		t.Error("ConfigPath not recorded")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	resetCardwallEnv(t)
	t.Setenv("CARDWALL_API_PORT", "3900")

	cfg, err := loadConfig(writeTempConfig(t, "api-port: 3000"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.APIPort != 3900 {
		t.Errorf("APIPort = %d, want env value 3900", cfg.APIPort)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	resetCardwallEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.APIPort != defaultAPIPort {
		t.Errorf("APIPort = %d, want %d", cfg.APIPort, defaultAPIPort)
	}
}

func TestBuildCards(t *testing.T) {
	t.Parallel()

	defs, err := buildCards(nil, nil, []cards.Spec{{ID: "c", Kind: cards.KindClock}})
	if err != nil {
		t.Fatalf("buildCards: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "c" {
		t.Fatalf("defs = %+v", defs)
	}

	if _, err := buildCards(nil, nil, []cards.Spec{{ID: "h", Kind: cards.KindHistory}}); err == nil {
		t.Fatal("history card without a store should fail")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetCardwallEnv(t *testing.T) {
	t.Helper()

	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "CARDWALL_") {
			continue
		}
		// t.Setenv restores the original value on cleanup.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}
