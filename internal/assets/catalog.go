package assets

import (
	"errors"
	"fmt"

	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

// Asset 描述一个需要预加载的声音
type Asset struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	Volume float32 `json:"volume"`
	// Autoplay 在注册后立即播放，Loop 决定是否循环
	Autoplay bool `json:"autoplay"`
	Loop     bool `json:"loop"`
}

// Registrar 是 mixer.Mixer 中加载资源所需的部分
type Registrar interface {
	Register(name string, pcm []byte) (*mixer.Stream, error)
	Play(s *mixer.Stream, volume float32, loop bool)
}

// LoadAll 解码并注册所有资源。单个资源失败不会中断其余资源的加载，
// 所有错误合并后返回。
func LoadAll(reg Registrar, list []Asset) error {
	var errs []error
	for _, a := range list {
		pcm, err := LoadWAV(a.Path)
		if err != nil {
			logging.Errorf("Assets: failed to load %s: %v", a.Name, err)
			errs = append(errs, fmt.Errorf("asset %s: %w", a.Name, err))
			continue
		}
		s, err := reg.Register(a.Name, pcm)
		if err != nil {
			logging.Errorf("Assets: failed to register %s: %v", a.Name, err)
			errs = append(errs, fmt.Errorf("asset %s: %w", a.Name, err))
			continue
		}
		logging.Infof("Assets: loaded %s from %s (%d frames)", a.Name, a.Path, s.SampleCount())

		if a.Autoplay {
			volume := a.Volume
			if volume <= 0 {
				volume = mixer.KeepVolume
			}
			reg.Play(s, volume, a.Loop)
		}
	}
	return errors.Join(errs...)
}
