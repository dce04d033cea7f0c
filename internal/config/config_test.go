package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/liuscraft/softmix/internal/assets"
)

func TestLoad_MergesDefaultsAndEnv(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mixer.json")
	data := `{
		"logging": {"level": "debug"},
		"mixer": {"max_streams": 8},
		"output": {"backend": "oto", "device_latency_ms": 40},
		"assets": [{"name": "music", "path": "music.wav", "autoplay": true, "loop": true}]
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("MIXER_BACKEND", "headless")
	t.Setenv("MIXER_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("MIXER_MASTER_VOLUME", "0.25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected LOG_LEVEL to override config, got %q", cfg.Logging.Level)
	}
	if cfg.Mixer.MaxStreams != 8 {
		t.Fatalf("expected max streams to be 8, got %d", cfg.Mixer.MaxStreams)
	}
	if cfg.Mixer.BufferSize != 2400 || cfg.Mixer.QueueDepth != 4 {
		t.Fatalf("expected default buffer settings to be preserved, got %+v", cfg.Mixer)
	}
	if cfg.Output.Backend != "headless" {
		t.Fatalf("expected MIXER_BACKEND to override config, got %q", cfg.Output.Backend)
	}
	if cfg.DeviceLatency() != 40*time.Millisecond {
		t.Fatalf("expected 40ms latency, got %s", cfg.DeviceLatency())
	}
	if cfg.Control.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("expected listen addr from env, got %q", cfg.Control.ListenAddr)
	}
	if cfg.Mixer.MasterVolume != 0.25 || cfg.MixerSettings().MasterVolume != 0.25 {
		t.Fatalf("expected master volume from env, got %v", cfg.Mixer.MasterVolume)
	}
	if len(cfg.Assets) != 1 || !cfg.Assets[0].Loop {
		t.Fatalf("expected one looping asset, got %+v", cfg.Assets)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Backend != "portaudio" || !cfg.Control.Enable {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if got := cfg.MixerSettings().BufferFrames(); got != 600 {
		t.Fatalf("expected 600 frames, got %d", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}

	t.Setenv("MIXER_MASTER_VOLUME", "loud")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected invalid MIXER_MASTER_VOLUME error")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"buffer not frame aligned", func(c *AppConfig) { c.Mixer.BufferSize = 2401 }},
		{"zero streams", func(c *AppConfig) { c.Mixer.MaxStreams = 0 }},
		{"zero queue", func(c *AppConfig) { c.Mixer.QueueDepth = 0 }},
		{"negative master", func(c *AppConfig) { c.Mixer.MasterVolume = -1 }},
		{"unknown backend", func(c *AppConfig) { c.Output.Backend = "alsa" }},
		{"wav without path", func(c *AppConfig) { c.Output.Backend = "wav"; c.Output.WAVPath = "" }},
		{"negative latency", func(c *AppConfig) { c.Output.DeviceLatencyMs = -5 }},
		{"relative control path", func(c *AppConfig) { c.Control.Path = "ws" }},
		{"asset without path", func(c *AppConfig) { c.Assets = append(c.Assets, c.Assets[0]); c.Assets[0].Path = "" }},
		{"duplicate asset", func(c *AppConfig) { c.Assets = append(c.Assets, c.Assets[0]) }},
		{"persist without app name", func(c *AppConfig) { c.Settings.AppName = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Assets = append(cfg.Assets, assetFixture())
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Control.Enable = false
	cfg.Control.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled control server should not be validated: %v", err)
	}
}

func assetFixture() assets.Asset {
	return assets.Asset{Name: "click", Path: "click.wav"}
}
