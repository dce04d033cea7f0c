package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liuscraft/softmix/internal/mixer"
)

type collectSink struct {
	mu   sync.Mutex
	bufs [][]int16
	err  error
}

func (c *collectSink) write(buf []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.bufs = append(c.bufs, append([]int16(nil), buf...))
	return nil
}

func (c *collectSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bufs)
}

func (c *collectSink) at(i int) []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufs[i]
}

func waitUntil(t *testing.T, what string, cond func() bool) {
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

func TestHeadlessVoicePaced(t *testing.T) {
	sink := &collectSink{}
	v := NewHeadlessVoice(HeadlessConfig{Interval: time.Millisecond, Sink: sink.write})
	defer v.Close()

	for i := 0; i < 3; i++ {
		if err := v.Submit([]int16{int16(i), int16(i)}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if v.Queued() != 3 {
		t.Fatalf("expected buffers to wait for Start, got %d queued", v.Queued())
	}

	if err := v.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitUntil(t, "buffers played", func() bool { return sink.count() == 3 })
	if v.Queued() != 0 {
		t.Fatalf("expected empty queue, got %d", v.Queued())
	}
	if sink.at(2)[0] != 2 {
		t.Fatal("buffers played out of order")
	}
}

func TestHeadlessVoiceUnpacedSinkError(t *testing.T) {
	boom := errors.New("disk full")
	sink := &collectSink{err: boom}
	v := NewHeadlessVoice(HeadlessConfig{Sink: sink.write})

	if err := v.Submit([]int16{1, 1}); !errors.Is(err, boom) {
		t.Fatalf("expected sink error from Submit, got %v", err)
	}
	if err := v.Submit([]int16{1, 1}); !errors.Is(err, boom) {
		t.Fatalf("expected sticky sink error, got %v", err)
	}

	v.Close()
	if err := v.Submit([]int16{1, 1}); !errors.Is(err, ErrVoiceClosed) {
		t.Fatalf("expected ErrVoiceClosed, got %v", err)
	}
}

func TestMixerThroughHeadlessVoice(t *testing.T) {
	sink := &collectSink{}
	voice := NewHeadlessVoice(HeadlessConfig{Interval: time.Millisecond, Sink: sink.write})

	cfg := &mixer.Config{MaxStreams: 4, BufferSize: 16, QueueDepth: 2, MasterVolume: 1}
	m, err := mixer.New(voice, cfg)
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	defer m.Close()

	pcm := make([]byte, 8*mixer.BytesPerFrame)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(500))
	}
	s, err := m.Register("blip", pcm)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Play(s, 1, false)

	waitUntil(t, "stream to finish", func() bool { return !m.IsPlaying(s) && sink.count() >= 2 })

	first := sink.at(0)
	if first[0] != 500 || first[7] != 500 {
		t.Fatalf("expected mixed samples in first buffer, got %v", first)
	}
}
