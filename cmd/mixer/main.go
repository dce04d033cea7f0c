package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/liuscraft/softmix/internal/assets"
	"github.com/liuscraft/softmix/internal/audio"
	"github.com/liuscraft/softmix/internal/events"
	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

var (
	musicFile  = flag.String("music", "", "背景音乐文件路径（WAV 格式，48kHz 16bit）")
	effectFile = flag.String("effect", "", "音效文件路径（WAV 格式，48kHz 16bit）")
	backend    = flag.String("backend", "portaudio", "输出后端：portaudio、oto、headless、wav")
	output     = flag.String("out", "mix.wav", "wav 后端的输出文件")
	device     = flag.String("device", "", "portaudio 输出设备名称（部分匹配）")
	duration   = flag.Float64("duration", 2.0, "每个阶段的持续时间（秒）")
	help       = flag.Bool("h", false, "显示帮助信息")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}
	if err := logging.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	fmt.Println("=== SoftMix 验证工具 ===")
	fmt.Println()

	b, err := audio.ParseBackend(*backend)
	if err != nil {
		fmt.Printf("无效的输出后端: %v\n", err)
		return
	}

	cfg := mixer.DefaultConfig()
	voice, err := audio.Open(audio.Options{
		Backend:  b,
		Device:   *device,
		WAVPath:  *output,
		Realtime: true,
	}, cfg)
	if err != nil {
		fmt.Printf("打开输出设备失败: %v\n", err)
		return
	}

	mix, err := mixer.New(voice, cfg)
	if err != nil {
		voice.Close()
		fmt.Printf("创建 Mixer 失败: %v\n", err)
		return
	}
	defer mix.Close()

	bus := events.NewBus()
	mix.SetEventBus(bus)
	finished := make(chan string, 4)
	bus.Subscribe(events.EventTypeStreamFinished, func(event events.Event) {
		finished <- event.(events.StreamFinished).Name
	})

	phase := time.Duration(*duration * float64(time.Second))

	fmt.Println("1. 准备音频...")
	music, musicSource, err := loadOrTone(*musicFile, 220, *duration*4)
	if err != nil {
		fmt.Printf("读取背景音乐失败: %v\n", err)
		return
	}
	effect, effectSource, err := loadOrTone(*effectFile, 880, *duration)
	if err != nil {
		fmt.Printf("读取音效失败: %v\n", err)
		return
	}
	fmt.Printf("   - music: %s\n", musicSource)
	fmt.Printf("   - effect: %s\n", effectSource)

	musicStream, err := mix.Register("music", music)
	if err != nil {
		fmt.Printf("注册 music 失败: %v\n", err)
		return
	}
	if _, err := mix.Register("effect", effect); err != nil {
		fmt.Printf("注册 effect 失败: %v\n", err)
		return
	}
	fmt.Println()

	if err := mix.Start(context.Background()); err != nil {
		fmt.Printf("启动 Mixer 失败: %v\n", err)
		return
	}

	fmt.Println("2. 循环播放背景音乐（淡入）...")
	params := mixer.DefaultPlayParams()
	params.Loop = true
	params.Flags = mixer.FlagFadeIn
	params.FadeCurve = mixer.FadeEqualPower
	mix.PlayWith(musicStream, params)
	time.Sleep(phase)

	fmt.Println("3. 背景音乐压低到 30%，播放音效（淡入淡出）...")
	if err := mix.Fade(musicStream, mixer.FadeParams{To: 0.3, Duration: 0.3, Curve: mixer.FadeLinear, Hold: true}); err != nil {
		fmt.Printf("淡出失败: %v\n", err)
	}
	effectParams := mixer.DefaultPlayParams()
	effectParams.Flags = mixer.FlagFadeIn | mixer.FlagFadeOut
	effectParams.FadeIn = 0.1
	effectParams.FadeOut = 0.3
	mix.PlayByNameWith("effect", effectParams)

	select {
	case name := <-finished:
		fmt.Printf("   - %s 播放完成\n", name)
	case <-time.After(phase * 2):
		fmt.Println("   - 等待音效结束超时")
	}

	fmt.Println("4. 背景音乐恢复 100%，声道左偏...")
	if err := mix.Fade(musicStream, mixer.FadeParams{To: 1, Duration: 0.3, Curve: mixer.FadeLinear, Hold: true}); err != nil {
		fmt.Printf("淡入失败: %v\n", err)
	}
	time.Sleep(500 * time.Millisecond)
	mix.SetVolume(musicStream, mixer.Volume{Global: 1, Left: 1, Right: 0.2})
	time.Sleep(phase)

	fmt.Println("5. 暂停与恢复...")
	mix.Pause(musicStream)
	time.Sleep(phase / 2)
	mix.Resume(musicStream)
	time.Sleep(phase / 2)

	fmt.Println("6. 停止播放")
	if err := mix.Fade(musicStream, mixer.FadeParams{To: 0, Duration: 0.5, Curve: mixer.FadeRelease, Hold: true}); err != nil {
		fmt.Printf("淡出失败: %v\n", err)
	}
	time.Sleep(600 * time.Millisecond)

	stats := mix.Stats()
	if err := mix.Halt(); err != nil {
		fmt.Printf("停止 Mixer 失败: %v\n", err)
	}

	fmt.Println()
	fmt.Println("=== 验证完成 ===")
	fmt.Printf("混音次数: %d, 提交缓冲区: %d\n", stats.Passes, stats.Submitted)
	if r, ok := voice.(audio.StatsReporter); ok {
		vs := r.Stats()
		fmt.Printf("已播放缓冲区: %d, 欠载: %d\n", vs.Played, vs.Underruns)
	}
	fmt.Println()
	fmt.Println("预期效果:")
	fmt.Println("  - 阶段2: 背景音乐平滑淡入")
	fmt.Println("  - 阶段3: 背景音乐明显降低，音效淡入后淡出")
	fmt.Println("  - 阶段4: 背景音乐恢复，右声道变弱")
	fmt.Println("  - 阶段5: 暂停后从暂停处继续")
}

// loadOrTone 读取 WAV 文件，未指定路径时生成正弦波
func loadOrTone(path string, freq, seconds float64) ([]byte, string, error) {
	if path == "" {
		return assets.SineWave(freq, seconds, 0.5), fmt.Sprintf("%.0fHz 正弦波, %.1f秒", freq, seconds), nil
	}
	pcm, err := assets.LoadWAV(path)
	if err != nil {
		return nil, "", err
	}
	return pcm, fmt.Sprintf("文件: %s", path), nil
}

func printHelp() {
	fmt.Println("SoftMix 验证工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  go run ./cmd/mixer [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  go run ./cmd/mixer")
	fmt.Println("    - 使用默认的正弦波测试音频")
	fmt.Println()
	fmt.Println("  go run ./cmd/mixer -music=music.wav -effect=click.wav")
	fmt.Println("    - 使用指定的音频文件")
	fmt.Println()
	fmt.Println("  go run ./cmd/mixer -backend=wav -out=demo.wav")
	fmt.Println("    - 不使用声卡，将混音结果写入 WAV 文件")
}
