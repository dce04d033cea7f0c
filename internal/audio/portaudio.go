package audio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

// PortAudioConfig PortAudio 输出配置
type PortAudioConfig struct {
	// DeviceName 设备名称（部分匹配），空字符串表示使用默认设备
	DeviceName string
	// FramesPerBuffer 每次回调的帧数，0 表示与混音缓冲区一致
	FramesPerBuffer int
	// Latency 建议输出延迟，0 表示使用设备的默认低延迟
	Latency time.Duration
	// HighLatency 使用设备的默认高延迟设置（适合蓝牙设备）
	HighLatency bool
}

// PortAudioVoice 通过 PortAudio 回调播放混音缓冲区
type PortAudioVoice struct {
	q      *bufferQueue
	stream *portaudio.Stream

	mu      sync.Mutex
	started bool
	closed  bool
}

var _ mixer.Voice = (*PortAudioVoice)(nil)

// NewPortAudioVoice 初始化 PortAudio 并打开输出流（流尚未启动）
func NewPortAudioVoice(cfg PortAudioConfig) (*PortAudioVoice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	v := &PortAudioVoice{q: newBufferQueue()}
	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = mixer.DefaultConfig().BufferFrames()
	}

	stream, err := v.openStream(cfg, frames)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	v.stream = stream
	return v, nil
}

func (v *PortAudioVoice) openStream(cfg PortAudioConfig, frames int) (*portaudio.Stream, error) {
	var device *portaudio.DeviceInfo
	var err error
	if cfg.DeviceName != "" {
		device, err = findOutputDeviceByName(cfg.DeviceName)
		if err != nil {
			logging.Warnf("PortAudioVoice: device %q not found, falling back to default: %v", cfg.DeviceName, err)
			device = nil
		}
	}
	if device == nil {
		device, err = portaudio.DefaultOutputDevice()
		if err != nil {
			logging.Errorf("PortAudioVoice: failed to get default output device: %v", err)
			return v.openDefaultStream(frames)
		}
	}

	latency := cfg.Latency
	latencyMode := "configured"
	if latency <= 0 {
		latency = device.DefaultLowOutputLatency
		latencyMode = "low"
		if cfg.HighLatency {
			latency = device.DefaultHighOutputLatency
			latencyMode = "high"
		}
	}

	logging.Infof("PortAudioVoice: device=%s, %s latency=%.1fms", device.Name, latencyMode, latency.Seconds()*1000)

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: mixer.Channels,
			Latency:  latency,
		},
		SampleRate:      mixer.SampleRate,
		FramesPerBuffer: frames,
	}
	stream, err := portaudio.OpenStream(params, v.callback)
	if err != nil {
		logging.Errorf("PortAudioVoice: failed to open stream with params: %v, falling back to default", err)
		return v.openDefaultStream(frames)
	}
	return stream, nil
}

func (v *PortAudioVoice) openDefaultStream(frames int) (*portaudio.Stream, error) {
	stream, err := portaudio.OpenDefaultStream(0, mixer.Channels, mixer.SampleRate, frames, v.callback)
	if err != nil {
		return nil, fmt.Errorf("open default output stream: %w", err)
	}
	logging.Infof("PortAudioVoice: created with fallback (frames=%d)", frames)
	return stream, nil
}

// callback 在 PortAudio 的音频线程中执行
func (v *PortAudioVoice) callback(out []int16) {
	v.q.fill(out)
}

// findOutputDeviceByName 按名称查找输出设备（支持部分匹配）
func findOutputDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	nameLower := strings.ToLower(name)
	for _, dev := range devices {
		if dev.MaxOutputChannels >= mixer.Channels && strings.Contains(strings.ToLower(dev.Name), nameLower) {
			logging.Infof("PortAudioVoice: found device %q matching %q", dev.Name, name)
			return dev, nil
		}
	}

	return nil, fmt.Errorf("no output device found matching %q", name)
}

func (v *PortAudioVoice) Queued() int {
	return v.q.len()
}

func (v *PortAudioVoice) Submit(buf []int16) error {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return ErrVoiceClosed
	}
	v.q.push(buf)
	return nil
}

func (v *PortAudioVoice) Consumed() <-chan struct{} {
	return v.q.consumed
}

func (v *PortAudioVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	if v.started {
		return nil
	}
	if err := v.stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	v.started = true
	logging.Infof("PortAudioVoice: stream started")
	return nil
}

func (v *PortAudioVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.started {
		return nil
	}
	v.started = false
	if err := v.stream.Stop(); err != nil {
		return fmt.Errorf("stop output stream: %w", err)
	}
	return nil
}

func (v *PortAudioVoice) Flush() error {
	v.q.flush()
	return nil
}

func (v *PortAudioVoice) Close() error {
	if err := v.Stop(); err != nil {
		logging.Errorf("PortAudioVoice: failed to stop stream: %v", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true

	var closeErr error
	if err := v.stream.Close(); err != nil {
		logging.Errorf("PortAudioVoice: failed to close stream: %v", err)
		closeErr = fmt.Errorf("close output stream: %w", err)
	}
	portaudio.Terminate()
	return closeErr
}

// Stats 返回播放与欠载计数
func (v *PortAudioVoice) Stats() VoiceStats {
	played, underruns := v.q.stats()
	return VoiceStats{Played: played, Underruns: underruns, Queued: v.q.len()}
}
