package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

var (
	ErrVoiceClosed    = errors.New("audio: voice is closed")
	ErrUnknownBackend = errors.New("audio: unknown output backend")
)

// Backend 输出后端名称
type Backend string

const (
	BackendPortAudio Backend = "portaudio"
	BackendOto       Backend = "oto"
	BackendHeadless  Backend = "headless"
	BackendWAV       Backend = "wav"
)

// ParseBackend 解析后端名称（大小写不敏感）
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendPortAudio, BackendOto, BackendHeadless, BackendWAV:
		return b, nil
	case "":
		return BackendPortAudio, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// VoiceStats 输出设备统计
type VoiceStats struct {
	Played    uint64 `json:"played"`
	Underruns uint64 `json:"underruns"`
	Queued    int    `json:"queued"`
}

// StatsReporter 由所有内置输出实现
type StatsReporter interface {
	Stats() VoiceStats
}

// Options 选择并配置输出后端
type Options struct {
	Backend     Backend
	Device      string        // portaudio 设备名称（部分匹配）
	Latency     time.Duration // portaudio 建议延迟 / oto 系统缓冲时长
	HighLatency bool
	WAVPath     string // wav 后端的输出文件
	// Realtime 让 headless 与 wav 后端按实时速率消费缓冲区
	Realtime bool
}

// Open 按 opts 创建输出设备，缓冲区大小取自混音器配置
func Open(opts Options, cfg *mixer.Config) (mixer.Voice, error) {
	if cfg == nil {
		cfg = mixer.DefaultConfig()
	}
	var interval time.Duration
	if opts.Realtime {
		interval = RealtimeInterval(cfg)
	}

	logging.Infof("Audio: opening %s output", opts.Backend)
	switch opts.Backend {
	case BackendPortAudio, "":
		return NewPortAudioVoice(PortAudioConfig{
			DeviceName:      opts.Device,
			FramesPerBuffer: cfg.BufferFrames(),
			Latency:         opts.Latency,
			HighLatency:     opts.HighLatency,
		})
	case BackendOto:
		return NewOtoVoice(opts.Latency, cfg.BufferSize)
	case BackendHeadless:
		return NewHeadlessVoice(HeadlessConfig{Interval: interval}), nil
	case BackendWAV:
		if opts.WAVPath == "" {
			return nil, errors.New("audio: wav backend needs an output path")
		}
		return NewRecorderVoice(opts.WAVPath, interval)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
