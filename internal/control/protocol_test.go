package control

import (
	"errors"
	"strings"
	"testing"

	"github.com/liuscraft/softmix/internal/mixer"
)

func f32(v float32) *float32 { return &v }

func newTestMixer(t *testing.T) *mixer.Mixer {
	t.Helper()
	m, err := mixer.New(nil, nil)
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	for _, name := range []string{"music", "click"} {
		if _, err := m.Register(name, make([]byte, 4800*mixer.BytesPerFrame)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return m
}

func TestDispatchPlayAndStop(t *testing.T) {
	m := newTestMixer(t)

	resp := Dispatch(m, Request{ID: "1", Action: "play", Name: "music", Volume: f32(0.5), Loop: true})
	if !resp.OK || resp.ID != "1" || resp.Type != TypeReply {
		t.Fatalf("unexpected reply %+v", resp)
	}
	if resp.Playing == nil || !*resp.Playing {
		t.Fatal("expected playing=true")
	}
	if v := m.Volume(m.FindByName("music")); v.Global != 0.5 {
		t.Fatalf("expected volume 0.5, got %v", v.Global)
	}

	for _, action := range []string{"pause", "resume", "stop", "remove"} {
		resp = Dispatch(m, Request{Action: action, Name: "music"})
		if !resp.OK {
			t.Fatalf("%s failed: %s", action, resp.Error)
		}
	}
	if *resp.Playing || m.StreamCount() != 0 {
		t.Fatal("expected music stopped and removed")
	}
}

func TestDispatchPlayEx(t *testing.T) {
	m := newTestMixer(t)

	resp := Dispatch(m, Request{
		Action:  "play_ex",
		Name:    "click",
		Right:   f32(0.25),
		FadeIn:  f32(0.01),
		FadeOut: f32(0),
		Curve:   "equal-power",
	})
	if !resp.OK || !*resp.Playing {
		t.Fatalf("unexpected reply %+v", resp)
	}
	if v := m.Volume(m.FindByName("click")); v.Right != 0.25 || v.Global != 1 {
		t.Fatalf("unexpected volume %+v", v)
	}

	resp = Dispatch(m, Request{Action: "play_ex", Name: "click", Curve: "sawtooth"})
	if resp.OK || !strings.Contains(resp.Error, "unknown fade curve") {
		t.Fatalf("expected curve error, got %+v", resp)
	}
}

func TestDispatchVolumes(t *testing.T) {
	m := newTestMixer(t)

	resp := Dispatch(m, Request{Action: "set_master_volume", Volume: f32(-2)})
	if !resp.OK || *resp.MasterVolume != 0 {
		t.Fatalf("expected master volume clamped to 0, got %+v", resp)
	}
	if resp := Dispatch(m, Request{Action: "set_master_volume"}); resp.OK {
		t.Fatal("expected missing volume to fail")
	}

	resp = Dispatch(m, Request{Action: "set_volume", Name: "music", Left: f32(0.1)})
	if !resp.OK {
		t.Fatalf("set_volume failed: %s", resp.Error)
	}
	if v := m.Volume(m.FindByName("music")); v.Left != 0.1 || v.Global != 1 || v.Right != 1 {
		t.Fatalf("expected only left changed, got %+v", v)
	}
}

func TestDispatchFade(t *testing.T) {
	m := newTestMixer(t)
	Dispatch(m, Request{Action: "play", Name: "music"})

	resp := Dispatch(m, Request{Action: "fade", Name: "music", To: 0})
	if resp.OK || !strings.Contains(resp.Error, mixer.ErrInvalidFade.Error()) {
		t.Fatalf("expected invalid fade error, got %+v", resp)
	}
	resp = Dispatch(m, Request{Action: "fade", Name: "music", To: 0.2, Duration: 1, Curve: "release", Hold: true})
	if !resp.OK {
		t.Fatalf("fade failed: %s", resp.Error)
	}
}

func TestDispatchErrors(t *testing.T) {
	m := newTestMixer(t)

	testCases := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown action", Request{Action: "explode"}, ErrUnknownAction},
		{"missing name", Request{Action: "play"}, ErrMissingField},
		{"unknown stream", Request{Action: "stop", Name: "ghost"}, ErrUnknownStream},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dispatch(m, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if resp := Dispatch(m, tc.req); resp.OK || resp.Error == "" {
				t.Fatalf("expected failed reply, got %+v", resp)
			}
		})
	}
}

func TestDispatchStatusAndBulk(t *testing.T) {
	m := newTestMixer(t)
	Dispatch(m, Request{Action: "play", Name: "music", Loop: true})
	Dispatch(m, Request{Action: "play", Name: "click"})

	Dispatch(m, Request{Action: "pause_all"})
	if m.IsPlayingByName("music") || m.IsPlayingByName("click") {
		t.Fatal("expected pause_all to pause everything")
	}
	Dispatch(m, Request{Action: "start_all"})
	if !m.IsPlayingByName("music") || !m.IsPlayingByName("click") {
		t.Fatal("expected start_all to resume everything")
	}

	resp := Dispatch(m, Request{Action: "status", Name: "music"})
	if !resp.OK || len(resp.Streams) != 2 || resp.Stats == nil || !*resp.Playing {
		t.Fatalf("unexpected status %+v", resp)
	}
	if resp.Stats.ActiveStreams != 2 || resp.Stats.Registered != 2 {
		t.Fatalf("unexpected stats %+v", resp.Stats)
	}

	Dispatch(m, Request{Action: "stop_all"})
	if m.IsPlayingByName("music") {
		t.Fatal("expected stop_all to stop everything")
	}
}
