package settings

import (
	"encoding/json"
	"fmt"

	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
	"github.com/quasilyte/gdata"
)

const itemKey = "settings"

// Settings 在两次运行之间保存的混音器状态
type Settings struct {
	MasterVolume float32 `json:"master_volume"`
	// Volumes 按流名称保存的音量
	Volumes map[string]mixer.Volume `json:"volumes,omitempty"`
}

// ItemStore 键值存储，由 gdata.Manager 实现
type ItemStore interface {
	LoadItem(key string) ([]byte, error)
	SaveItem(key string, data []byte) error
}

// Store 读写持久化设置
type Store struct {
	items ItemStore
}

// Open 打开 appName 对应的用户数据目录
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open settings storage: %w", err)
	}
	return NewStore(m), nil
}

func NewStore(items ItemStore) *Store {
	return &Store{items: items}
}

// Load 读取已保存的设置，尚未保存过时返回 nil
func (s *Store) Load() (*Settings, error) {
	data, err := s.items.LoadItem(itemKey)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &st, nil
}

func (s *Store) Save(st *Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("serialize settings: %w", err)
	}
	if err := s.items.SaveItem(itemKey, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Capture 记录混音器当前的主音量与所有已注册流的音量
func Capture(m *mixer.Mixer) *Settings {
	st := &Settings{
		MasterVolume: m.MasterVolume(),
		Volumes:      make(map[string]mixer.Volume),
	}
	for _, status := range m.Snapshot() {
		st.Volumes[status.Name] = status.Volume
	}
	return st
}

// Apply 将设置应用到混音器，未注册的流会被忽略
func Apply(m *mixer.Mixer, st *Settings) {
	if st == nil {
		return
	}
	m.SetMasterVolume(st.MasterVolume)
	applied := 0
	for name, v := range st.Volumes {
		if s := m.FindByName(name); s != nil {
			m.SetVolume(s, v)
			applied++
		}
	}
	logging.Infof("Settings: restored master volume %.2f and %d stream volumes", st.MasterVolume, applied)
}
