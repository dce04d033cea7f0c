package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
)

// wavPCMFormat 是 WAV 头中的 PCM 格式编号
const wavPCMFormat = 1

// WAVRecorder 将播放的缓冲区编码写入 16 位立体声 WAV 文件
type WAVRecorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	ib     *goaudio.IntBuffer
	frames uint64
	closed bool
}

func NewWAVRecorder(path string) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav file: %w", err)
	}
	return &WAVRecorder{
		file: f,
		enc:  wav.NewEncoder(f, mixer.SampleRate, mixer.BitDepth, mixer.Channels, wavPCMFormat),
		ib: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: mixer.Channels, SampleRate: mixer.SampleRate},
			SourceBitDepth: mixer.BitDepth,
		},
	}, nil
}

// Write 编码一个交错的立体声缓冲区，可作为 HeadlessVoice 的 Sink
func (r *WAVRecorder) Write(buf []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrVoiceClosed
	}

	if cap(r.ib.Data) < len(buf) {
		r.ib.Data = make([]int, len(buf))
	}
	r.ib.Data = r.ib.Data[:len(buf)]
	for i, s := range buf {
		r.ib.Data[i] = int(s)
	}
	if err := r.enc.Write(r.ib); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	r.frames += uint64(len(buf) / mixer.Channels)
	return nil
}

// Frames 返回已写入的帧数
func (r *WAVRecorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close 写入 WAV 头中的长度信息并关闭文件
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	encErr := r.enc.Close()
	fileErr := r.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close wav file: %w", fileErr)
	}
	logging.Infof("WAVRecorder: wrote %d frames to %s", r.frames, r.file.Name())
	return nil
}

// RecorderVoice 是写入 WAV 文件的无设备输出
type RecorderVoice struct {
	*HeadlessVoice
	rec *WAVRecorder
}

var _ mixer.Voice = (*RecorderVoice)(nil)

// NewRecorderVoice 创建录音输出。interval 为 0 时以最快速度离线渲染。
func NewRecorderVoice(path string, interval time.Duration) (*RecorderVoice, error) {
	rec, err := NewWAVRecorder(path)
	if err != nil {
		return nil, err
	}
	return &RecorderVoice{
		HeadlessVoice: NewHeadlessVoice(HeadlessConfig{Interval: interval, Sink: rec.Write}),
		rec:           rec,
	}, nil
}

func (v *RecorderVoice) Frames() uint64 {
	return v.rec.Frames()
}

// Close 停止输出并完成 WAV 文件
func (v *RecorderVoice) Close() error {
	err := v.HeadlessVoice.Close()
	if rerr := v.rec.Close(); rerr != nil {
		logging.Errorf("RecorderVoice: %v", rerr)
		if err == nil {
			err = rerr
		}
	}
	return err
}
