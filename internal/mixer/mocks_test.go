package mixer

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"
)

// mockVoice 模拟输出设备：缓冲区提交后保持排队，直到测试调用 consume
type mockVoice struct {
	mu        sync.Mutex
	queue     [][]int16
	submitted [][]int16
	consumed  chan struct{}
	submitErr error
	startErr  error

	startCount int
	stopCount  int
	flushCount int
	closeCount int
}

func newMockVoice() *mockVoice {
	return &mockVoice{consumed: make(chan struct{}, 1)}
}

func (v *mockVoice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

func (v *mockVoice) Submit(buf []int16) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.submitErr != nil {
		return v.submitErr
	}
	v.queue = append(v.queue, buf)
	v.submitted = append(v.submitted, append([]int16(nil), buf...))
	return nil
}

func (v *mockVoice) Consumed() <-chan struct{} {
	return v.consumed
}

func (v *mockVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.startCount++
	return v.startErr
}

func (v *mockVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopCount++
	return nil
}

func (v *mockVoice) Flush() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flushCount++
	v.queue = nil
	return nil
}

func (v *mockVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeCount++
	return nil
}

// consume 模拟设备播放完 n 个缓冲区
func (v *mockVoice) consume(n int) {
	v.mu.Lock()
	n = min(n, len(v.queue))
	v.queue = v.queue[n:]
	v.mu.Unlock()
	select {
	case v.consumed <- struct{}{}:
	default:
	}
}

func (v *mockVoice) getSubmitted() [][]int16 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]int16, len(v.submitted))
	copy(out, v.submitted)
	return out
}

func (v *mockVoice) setSubmitErr(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitErr = err
}

// pcmFrames 将交错的 int16 样本编码为 s16le 字节
func pcmFrames(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// constantPCM 生成 frames 帧、左右声道均为 value 的 PCM
func constantPCM(frames int, value int16) []byte {
	samples := make([]int16, frames*Channels)
	for i := range samples {
		samples[i] = value
	}
	return pcmFrames(samples...)
}

func smallConfig(frames, streams int) *Config {
	return &Config{
		MaxStreams:   streams,
		BufferSize:   frames * BytesPerFrame,
		QueueDepth:   4,
		MasterVolume: 1,
	}
}

func newTestMixer(t *testing.T, frames, streams int) *Mixer {
	t.Helper()
	m, err := New(nil, smallConfig(frames, streams))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func mustRegister(t *testing.T, m *Mixer, name string, pcm []byte) *Stream {
	t.Helper()
	s, err := m.Register(name, pcm)
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
