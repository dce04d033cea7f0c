package mixer

import (
	"errors"
	"slices"
	"testing"
)

func TestStopAndRemoveAreIdempotent(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	s := mustRegister(t, m, "s", constantPCM(4, 1))

	// Commands on a stream without a slot do nothing.
	m.Stop(s)
	m.Pause(s)
	m.Resume(s)
	m.Remove(s)

	m.Play(s, 1, false)
	m.Stop(s)
	m.Stop(s)
	m.Remove(s)
	m.Remove(s)

	if m.Slot(s) != NoSlot || m.IsPlaying(s) {
		t.Fatal("expected stream stopped and unslotted")
	}

	// Nil streams and unknown names are ignored.
	m.Play(nil, 1, false)
	m.Stop(nil)
	m.StopByName("missing")
	m.PlayByName("missing", 1, false)
	m.RemoveByName("missing")
	if m.IsPlayingByName("missing") {
		t.Fatal("unknown name must not report playing")
	}
}

func TestStopRewinds(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	s := mustRegister(t, m, "s", pcmFrames(1, 1, 2, 2, 3, 3, 4, 4))
	m.Play(s, 1, false)
	m.Mix(make([]int16, 4))
	m.Stop(s)
	m.Play(s, KeepVolume, false)

	dst := make([]int16, 4)
	m.Mix(dst)
	if !slices.Equal(dst, []int16{1, 1, 2, 2}) {
		t.Fatalf("expected playback from start after Stop, got %v", dst)
	}
}

func TestPlayByNameActivatesRegisteredStream(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	mustRegister(t, m, "late", constantPCM(4, 1))

	m.PlayByName("late", 0.25, false)
	if !m.IsPlayingByName("late") {
		t.Fatal("expected PlayByName to start a never-played stream")
	}
	if v := m.Volume(m.FindByName("late")); v.Global != 0.25 {
		t.Fatalf("expected global volume 0.25, got %v", v.Global)
	}
}

func TestPauseResume(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	s := mustRegister(t, m, "s", pcmFrames(1, 1, 2, 2, 3, 3, 4, 4))
	m.Play(s, 1, false)
	m.Mix(make([]int16, 4))

	m.Pause(s)
	if m.IsPlaying(s) {
		t.Fatal("paused stream must not report playing")
	}
	dst := []int16{9, 9, 9, 9}
	m.Mix(dst)
	if !slices.Equal(dst, []int16{0, 0, 0, 0}) || s.samplesPlayed != 2 {
		t.Fatalf("paused stream advanced: dst=%v played=%d", dst, s.samplesPlayed)
	}

	m.Resume(s)
	m.Mix(dst)
	if !slices.Equal(dst, []int16{3, 3, 4, 4}) {
		t.Fatalf("expected playback to continue after Resume, got %v", dst)
	}
}

func TestPauseAllStartAll(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	looped := mustRegister(t, m, "looped", constantPCM(4, 1))
	stopped := mustRegister(t, m, "stopped", constantPCM(4, 1))

	m.Play(looped, 1, true)
	m.Play(stopped, 1, false)
	m.Stop(stopped)
	m.PauseAll()

	if looped.state != Paused || stopped.state != Stopped {
		t.Fatalf("unexpected states after PauseAll: %s %s", looped.state, stopped.state)
	}

	m.StartAll()
	if looped.state != Looping {
		t.Fatalf("expected paused stream to resume looping, got %s", looped.state)
	}
	if stopped.state != Playing || !m.IsPlaying(stopped) {
		t.Fatalf("expected stopped stream to start, got %s", stopped.state)
	}

	m.StopAll()
	if m.IsPlaying(looped) || m.IsPlaying(stopped) {
		t.Fatal("expected StopAll to stop every stream")
	}
}

func TestPlayWithDuration(t *testing.T) {
	m := newTestMixer(t, 2, 4)
	s := mustRegister(t, m, "long", constantPCM(100, 1))

	p := DefaultPlayParams()
	p.Duration = 0.001
	m.PlayWith(s, p)
	if s.samplesToPlay != 48 {
		t.Fatalf("expected 48 frames scheduled, got %d", s.samplesToPlay)
	}

	p.Duration = 10
	m.PlayWith(s, p)
	if s.samplesToPlay != 100 {
		t.Fatalf("expected duration capped at stream length, got %d", s.samplesToPlay)
	}

	p.Duration = 0
	m.PlayWith(s, p)
	if s.samplesToPlay != 100 {
		t.Fatalf("expected zero duration to play everything, got %d", s.samplesToPlay)
	}
}

func TestManualFade(t *testing.T) {
	m := newTestMixer(t, 8, 4)
	s := mustRegister(t, m, "s", constantPCM(100, 1000))

	if err := m.Fade(s, FadeParams{To: 0, Duration: 0}); !errors.Is(err, ErrInvalidFade) {
		t.Fatalf("expected ErrInvalidFade, got %v", err)
	}
	// Unslotted streams are left alone.
	if err := m.Fade(s, FadeParams{To: 0, Duration: 1}); err != nil || s.fading {
		t.Fatalf("fade on unslotted stream: err=%v fading=%v", err, s.fading)
	}

	m.Play(s, 1, false)
	if err := m.Fade(s, FadeParams{To: 0, Duration: 4 * SecondsPerSample, Curve: FadeLinear}); err != nil {
		t.Fatalf("Fade failed: %v", err)
	}
	dst := make([]int16, 16)
	m.Mix(dst)
	if !slices.Equal(dst[:8], []int16{1000, 1000, 750, 750, 500, 500, 250, 250}) {
		t.Fatalf("unexpected fade ramp %v", dst[:8])
	}
	if dst[14] != 1000 {
		t.Fatalf("expected volume restored after fade, got %v", dst[8:])
	}
}

func TestManualFadeHold(t *testing.T) {
	m := newTestMixer(t, 8, 4)
	s := mustRegister(t, m, "s", constantPCM(100, 1000))
	m.Play(s, 1, false)

	err := m.FadeByName("s", FadeParams{To: 0, Duration: 4 * SecondsPerSample, Hold: true})
	if err != nil {
		t.Fatalf("FadeByName failed: %v", err)
	}
	dst := make([]int16, 16)
	m.Mix(dst)
	if dst[14] != 0 || dst[15] != 0 {
		t.Fatalf("expected held volume of 0, got %v", dst[8:])
	}
	if v := m.Volume(s); v.Global != 0 {
		t.Fatalf("expected global volume 0 after held fade, got %v", v.Global)
	}
}

func TestSetVolumeDuringFade(t *testing.T) {
	m := newTestMixer(t, 8, 4)
	s := mustRegister(t, m, "s", constantPCM(100, 1000))
	m.Play(s, 1, false)
	if err := m.Fade(s, FadeParams{To: 0, Duration: 1}); err != nil {
		t.Fatalf("Fade failed: %v", err)
	}

	m.SetVolume(s, Volume{Global: 0.5, Left: 1, Right: 0})
	m.Stop(s)

	if v := m.Volume(s); v.Global != 0.5 || v.Right != 0 {
		t.Fatalf("expected volume set during fade to survive it, got %+v", v)
	}
}

func TestPlayCancelsFade(t *testing.T) {
	m := newTestMixer(t, 8, 4)
	s := mustRegister(t, m, "s", constantPCM(100, 1000))
	m.Play(s, 1, false)
	if err := m.Fade(s, FadeParams{To: 0, Duration: 1}); err != nil {
		t.Fatalf("Fade failed: %v", err)
	}
	m.Mix(make([]int16, 16))

	m.Play(s, KeepVolume, false)
	if s.fading {
		t.Fatal("expected Play to cancel the running fade")
	}
	if v := m.Volume(s); v.Global != 1 {
		t.Fatalf("expected pre-fade volume restored, got %v", v.Global)
	}
}
