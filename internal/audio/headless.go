package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

// Sink 接收已"播放"的缓冲区。返回错误时后续 Submit 会失败。
type Sink func(buf []int16) error

// HeadlessConfig 无设备输出配置
type HeadlessConfig struct {
	// Interval 每个缓冲区的播放时长。0 表示不限速：缓冲区在 Submit 时立即被消费
	Interval time.Duration
	Sink     Sink
}

// RealtimeInterval 返回按实时速率播放一个混音缓冲区所需的时长
func RealtimeInterval(cfg *mixer.Config) time.Duration {
	return time.Duration(cfg.BufferFrames()) * time.Second / mixer.SampleRate
}

// HeadlessVoice 不依赖声卡的输出，用于服务器、测试和离线渲染
type HeadlessVoice struct {
	q        *bufferQueue
	interval time.Duration
	sink     Sink

	mu      sync.Mutex
	running bool
	closed  bool
	err     error
	stop    chan struct{}
	wg      sync.WaitGroup
}

var _ mixer.Voice = (*HeadlessVoice)(nil)

func NewHeadlessVoice(cfg HeadlessConfig) *HeadlessVoice {
	return &HeadlessVoice{
		q:        newBufferQueue(),
		interval: cfg.Interval,
		sink:     cfg.Sink,
	}
}

func (v *HeadlessVoice) Queued() int {
	return v.q.len()
}

func (v *HeadlessVoice) Submit(buf []int16) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrVoiceClosed
	}
	if v.err != nil {
		err := v.err
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	v.q.push(buf)
	if v.interval <= 0 {
		return v.playNext()
	}
	return nil
}

func (v *HeadlessVoice) Consumed() <-chan struct{} {
	return v.q.consumed
}

func (v *HeadlessVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVoiceClosed
	}
	if v.running {
		return nil
	}
	v.running = true
	if v.interval > 0 {
		v.stop = make(chan struct{})
		v.wg.Add(1)
		go v.run(v.stop)
	}
	logging.Debugf("HeadlessVoice: started (interval=%s)", v.interval)
	return nil
}

func (v *HeadlessVoice) run(stop <-chan struct{}) {
	defer v.wg.Done()
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := v.playNext(); err != nil {
				return
			}
		}
	}
}

// playNext 将队首缓冲区交给 Sink，Sink 返回后才释放该缓冲区
func (v *HeadlessVoice) playNext() error {
	buf := v.q.front()
	if buf == nil {
		return nil
	}
	if v.sink != nil {
		if err := v.sink(buf); err != nil {
			err = fmt.Errorf("headless sink: %w", err)
			logging.Errorf("HeadlessVoice: %v", err)
			v.mu.Lock()
			v.err = err
			v.mu.Unlock()
			return err
		}
	}
	v.q.pop()
	return nil
}

func (v *HeadlessVoice) Stop() error {
	v.mu.Lock()
	if !v.running {
		v.mu.Unlock()
		return nil
	}
	v.running = false
	stop := v.stop
	v.stop = nil
	v.mu.Unlock()

	if stop != nil {
		close(stop)
		v.wg.Wait()
	}
	return nil
}

func (v *HeadlessVoice) Flush() error {
	v.q.flush()
	return nil
}

func (v *HeadlessVoice) Close() error {
	err := v.Stop()
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return err
}

// Err 返回 Sink 报告的错误
func (v *HeadlessVoice) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *HeadlessVoice) Stats() VoiceStats {
	played, underruns := v.q.stats()
	return VoiceStats{Played: played, Underruns: underruns, Queued: v.q.len()}
}
