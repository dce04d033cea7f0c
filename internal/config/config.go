package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liuscraft/softmix/internal/assets"
	"github.com/liuscraft/softmix/internal/mixer"
)

const DefaultPath = "config/mixer.json"

type AppConfig struct {
	Logging  LoggingConfig  `json:"logging"`
	Mixer    MixerConfig    `json:"mixer"`
	Output   OutputConfig   `json:"output"`
	Control  ControlConfig  `json:"control"`
	Assets   []assets.Asset `json:"assets"`
	Settings SettingsConfig `json:"settings"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type MixerConfig struct {
	MaxStreams   int     `json:"max_streams"`
	BufferSize   int     `json:"buffer_size"`
	QueueDepth   int     `json:"queue_depth"`
	MasterVolume float32 `json:"master_volume"`
}

type OutputConfig struct {
	Backend         string `json:"backend"`
	Device          string `json:"device"`
	DeviceLatencyMs int    `json:"device_latency_ms"`
	HighLatency     bool   `json:"high_latency"`
	WAVPath         string `json:"wav_path"`
	Realtime        bool   `json:"realtime"`
}

type ControlConfig struct {
	Enable     bool   `json:"enable"`
	ListenAddr string `json:"listen_addr"`
	Path       string `json:"path"`
}

type SettingsConfig struct {
	Persist bool   `json:"persist"`
	AppName string `json:"app_name"`
}

func DefaultConfig() *AppConfig {
	m := mixer.DefaultConfig()
	return &AppConfig{
		Logging: LoggingConfig{},
		Mixer: MixerConfig{
			MaxStreams:   m.MaxStreams,
			BufferSize:   m.BufferSize,
			QueueDepth:   m.QueueDepth,
			MasterVolume: m.MasterVolume,
		},
		Output: OutputConfig{
			Backend:  "portaudio",
			WAVPath:  "mix.wav",
			Realtime: true,
		},
		Control: ControlConfig{
			Enable:     true,
			ListenAddr: "127.0.0.1:8765",
			Path:       "/ws",
		},
		Settings: SettingsConfig{
			Persist: true,
			AppName: "softmix",
		},
	}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() error {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if backend := strings.TrimSpace(os.Getenv("MIXER_BACKEND")); backend != "" {
		c.Output.Backend = backend
	}
	if addr := strings.TrimSpace(os.Getenv("MIXER_LISTEN_ADDR")); addr != "" {
		c.Control.ListenAddr = addr
	}
	if volume := strings.TrimSpace(os.Getenv("MIXER_MASTER_VOLUME")); volume != "" {
		v, err := strconv.ParseFloat(volume, 32)
		if err != nil {
			return fmt.Errorf("invalid MIXER_MASTER_VOLUME: %s", volume)
		}
		c.Mixer.MasterVolume = float32(v)
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if c.Mixer.MaxStreams <= 0 {
		return errors.New("mixer.max_streams must be positive")
	}
	if c.Mixer.BufferSize <= 0 || c.Mixer.BufferSize%mixer.BytesPerFrame != 0 {
		return fmt.Errorf("mixer.buffer_size must be a positive multiple of %d", mixer.BytesPerFrame)
	}
	if c.Mixer.QueueDepth <= 0 {
		return errors.New("mixer.queue_depth must be positive")
	}
	if c.Mixer.MasterVolume < 0 {
		return errors.New("mixer.master_volume must be non-negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Output.Backend)) {
	case "portaudio", "oto", "headless":
	case "wav":
		if strings.TrimSpace(c.Output.WAVPath) == "" {
			return errors.New("output.wav_path is required for the wav backend")
		}
	default:
		return fmt.Errorf("invalid output backend: %s", c.Output.Backend)
	}
	if c.Output.DeviceLatencyMs < 0 {
		return errors.New("output.device_latency_ms must be non-negative")
	}

	if c.Control.Enable {
		if strings.TrimSpace(c.Control.ListenAddr) == "" {
			return errors.New("control.listen_addr is required")
		}
		if !strings.HasPrefix(c.Control.Path, "/") {
			return fmt.Errorf("control.path must start with /: %q", c.Control.Path)
		}
	}

	seen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("assets[%d]: name and path are required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate asset name: %s", a.Name)
		}
		seen[a.Name] = true
	}

	if c.Settings.Persist && strings.TrimSpace(c.Settings.AppName) == "" {
		return errors.New("settings.app_name is required when persist is enabled")
	}
	return nil
}

// MixerSettings 转换为混音器配置
func (c *AppConfig) MixerSettings() *mixer.Config {
	return &mixer.Config{
		MaxStreams:   c.Mixer.MaxStreams,
		BufferSize:   c.Mixer.BufferSize,
		QueueDepth:   c.Mixer.QueueDepth,
		MasterVolume: c.Mixer.MasterVolume,
	}
}

// DeviceLatency 返回配置的输出延迟，0 表示使用设备默认值
func (c *AppConfig) DeviceLatency() time.Duration {
	return time.Duration(c.Output.DeviceLatencyMs) * time.Millisecond
}
