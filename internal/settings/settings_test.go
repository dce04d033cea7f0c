package settings

import (
	"errors"
	"testing"

	"github.com/liuscraft/softmix/internal/mixer"
)

// memItems 内存中的 ItemStore
type memItems struct {
	items   map[string][]byte
	loadErr error
}

func newMemItems() *memItems {
	return &memItems{items: make(map[string][]byte)}
}

func (m *memItems) LoadItem(key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.items[key], nil
}

func (m *memItems) SaveItem(key string, data []byte) error {
	m.items[key] = data
	return nil
}

func TestLoadWithoutSavedSettings(t *testing.T) {
	st, err := NewStore(newMemItems()).Load()
	if err != nil || st != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", st, err)
	}
}

func TestSaveLoadAndApply(t *testing.T) {
	src, err := mixer.New(nil, nil)
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	s, _ := src.Register("music", make([]byte, 16))
	src.SetVolume(s, mixer.Volume{Global: 0.3, Left: 1, Right: 0.5})
	src.SetMasterVolume(0.8)

	store := NewStore(newMemItems())
	if err := store.Save(Capture(src)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.MasterVolume != 0.8 || loaded.Volumes["music"].Right != 0.5 {
		t.Fatalf("unexpected settings %+v", loaded)
	}

	dst, err := mixer.New(nil, nil)
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	music, _ := dst.Register("music", make([]byte, 16))
	Apply(dst, loaded)
	Apply(dst, nil)

	if dst.MasterVolume() != 0.8 {
		t.Fatalf("expected master volume 0.8, got %v", dst.MasterVolume())
	}
	if v := dst.Volume(music); v.Global != 0.3 || v.Right != 0.5 {
		t.Fatalf("expected restored stream volume, got %+v", v)
	}
}

func TestLoadErrors(t *testing.T) {
	items := newMemItems()
	items.items[itemKey] = []byte("{not json")
	if _, err := NewStore(items).Load(); err == nil {
		t.Fatal("expected parse error")
	}

	boom := errors.New("disk gone")
	items.loadErr = boom
	if _, err := NewStore(items).Load(); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestCaptureDuringFadeKeepsConfiguredVolume(t *testing.T) {
	m, err := mixer.New(nil, &mixer.Config{MaxStreams: 2, BufferSize: 4 * mixer.BytesPerFrame, QueueDepth: 1, MasterVolume: 1})
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	bgm, err := m.Register("bgm", make([]byte, 64*mixer.BytesPerFrame))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	m.Play(bgm, 0.8, true)
	if err := m.Fade(bgm, mixer.FadeParams{To: 0, Duration: 8 * mixer.SecondsPerSample}); err != nil {
		t.Fatalf("Fade failed: %v", err)
	}
	m.Mix(make([]int16, 4*mixer.Channels))

	st := Capture(m)
	if v := st.Volumes["bgm"]; v.Global != 0.8 {
		t.Fatalf("expected configured volume 0.8 to be captured mid-fade, got %+v", v)
	}

	status := m.Snapshot()[0]
	if !status.Fading || status.Current.Global >= 0.8 {
		t.Fatalf("expected the faded level in Current, got %+v", status)
	}
}
