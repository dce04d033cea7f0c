package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

// oto 每个进程只允许一个 Context
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

func ensureOtoContext(bufferSize time.Duration) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   mixer.SampleRate,
			ChannelCount: mixer.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

// OtoVoice 通过 oto 播放混音缓冲区。oto 以拉取方式读取 Read，
// 队列为空时输出静音。
type OtoVoice struct {
	q       *bufferQueue
	player  *oto.Player
	scratch []int16 // 仅在 oto 的读取协程中使用

	mu      sync.Mutex
	started bool
	closed  bool
}

var _ mixer.Voice = (*OtoVoice)(nil)

// NewOtoVoice 创建 oto 输出。bufferSize 为系统缓冲时长，0 使用 oto 的默认值；
// playerBytes 为播放器内部缓冲字节数，0 使用一个默认混音缓冲区。
func NewOtoVoice(bufferSize time.Duration, playerBytes int) (*OtoVoice, error) {
	ctx, err := ensureOtoContext(bufferSize)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	v := &OtoVoice{q: newBufferQueue()}
	v.player = ctx.NewPlayer(v)
	// 播放器内部缓冲保持在一个混音缓冲区左右，避免排队延迟叠加
	if playerBytes <= 0 {
		playerBytes = mixer.DefaultConfig().BufferSize
	}
	v.player.SetBufferSize(playerBytes)
	logging.Infof("OtoVoice: created (buffer=%s)", bufferSize)
	return v, nil
}

// Read 实现 io.Reader，供 oto.Player 拉取 s16le 数据
func (v *OtoVoice) Read(p []byte) (int, error) {
	samples := len(p) / 2
	if cap(v.scratch) < samples {
		v.scratch = make([]int16, samples)
	}
	buf := v.scratch[:samples]
	v.q.fill(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return samples * 2, nil
}

func (v *OtoVoice) Queued() int {
	return v.q.len()
}

func (v *OtoVoice) Submit(buf []int16) error {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return ErrVoiceClosed
	}
	v.q.push(buf)
	return nil
}

func (v *OtoVoice) Consumed() <-chan struct{} {
	return v.q.consumed
}

func (v *OtoVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	if !v.started {
		v.player.Play()
		v.started = true
		logging.Infof("OtoVoice: player started")
	}
	return nil
}

func (v *OtoVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.started {
		v.player.Pause()
		v.started = false
	}
	return nil
}

func (v *OtoVoice) Flush() error {
	v.q.flush()
	return nil
}

func (v *OtoVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.started = false
	if err := v.player.Close(); err != nil {
		logging.Errorf("OtoVoice: failed to close player: %v", err)
		return fmt.Errorf("close oto player: %w", err)
	}
	return nil
}

func (v *OtoVoice) Stats() VoiceStats {
	played, underruns := v.q.stats()
	return VoiceStats{Played: played, Underruns: underruns, Queued: v.q.len()}
}
