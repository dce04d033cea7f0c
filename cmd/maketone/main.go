package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/liuscraft/softmix/internal/assets"
	"github.com/liuscraft/softmix/internal/audio"
	"github.com/liuscraft/softmix/internal/mixer"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Println("用法: go run ./cmd/maketone <输出文件> <频率> <时长> [淡入淡出秒数]")
		fmt.Println("示例: go run ./cmd/maketone test.wav 440 2 0.2")
		return
	}

	filename := os.Args[1]
	freq, err1 := strconv.ParseFloat(os.Args[2], 64)
	duration, err2 := strconv.ParseFloat(os.Args[3], 64)
	if err1 != nil || err2 != nil || freq <= 0 || duration <= 0 {
		fmt.Println("频率和时长必须是正数")
		os.Exit(1)
	}
	var fade float64
	if len(os.Args) > 4 {
		v, err := strconv.ParseFloat(os.Args[4], 64)
		if err != nil || v < 0 {
			fmt.Println("淡入淡出秒数必须是非负数")
			os.Exit(1)
		}
		fade = v
	}

	fmt.Printf("生成音频文件: %s (频率: %.0fHz, 时长: %.1f秒)\n", filename, freq, duration)

	frames, err := render(filename, freq, duration, float32(fade))
	if err != nil {
		fmt.Printf("生成失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("完成! 共 %d 帧\n", frames)
}

// render 离线驱动混音器，把正弦波经过淡入淡出后写入 WAV
func render(filename string, freq, duration float64, fade float32) (uint64, error) {
	rec, err := audio.NewWAVRecorder(filename)
	if err != nil {
		return 0, err
	}

	cfg := mixer.DefaultConfig()
	m, err := mixer.New(nil, cfg)
	if err != nil {
		rec.Close()
		return 0, err
	}
	tone, err := m.Register("tone", assets.SineWave(freq, duration, 0.8))
	if err != nil {
		rec.Close()
		return 0, err
	}

	params := mixer.DefaultPlayParams()
	if fade > 0 {
		params.Flags = mixer.FlagFadeIn | mixer.FlagFadeOut
		params.FadeIn = fade
		params.FadeOut = fade
	}
	m.PlayWith(tone, params)

	buf := make([]int16, cfg.BufferFrames()*mixer.Channels)
	for m.IsPlaying(tone) {
		m.Mix(buf)
		if err := rec.Write(buf); err != nil {
			rec.Close()
			return 0, err
		}
	}
	if err := rec.Close(); err != nil {
		return 0, err
	}
	return rec.Frames(), nil
}
