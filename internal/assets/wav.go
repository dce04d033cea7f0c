package assets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/liuscraft/softmix/internal/mixer"
)

var (
	ErrNotWAV                = errors.New("assets: not a valid WAV file")
	ErrUnsupportedSampleRate = errors.New("assets: unsupported sample rate")
	ErrUnsupportedBitDepth   = errors.New("assets: unsupported bit depth")
	ErrUnsupportedChannels   = errors.New("assets: unsupported channel count")
)

// LoadWAV 读取 WAV 文件并转换为混音器使用的 s16le 立体声 PCM
func LoadWAV(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pcm, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, nil
}

// DecodeWAV 解码 16 位 48kHz 的 PCM WAV。单声道会被复制到左右两个声道。
func DecodeWAV(r io.ReadSeeker) ([]byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.SampleRate != mixer.SampleRate {
		return nil, fmt.Errorf("%w: %d Hz", ErrUnsupportedSampleRate, dec.SampleRate)
	}
	if dec.BitDepth != mixer.BitDepth {
		return nil, fmt.Errorf("%w: %d bit", ErrUnsupportedBitDepth, dec.BitDepth)
	}
	channels := int(dec.NumChans)
	if channels != 1 && channels != mixer.Channels {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, channels)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}

	frames := len(buf.Data) / channels
	out := make([]byte, frames*mixer.BytesPerFrame)
	for i := 0; i < frames; i++ {
		l := buf.Data[i*channels]
		r := l
		if channels == mixer.Channels {
			r = buf.Data[i*channels+1]
		}
		binary.LittleEndian.PutUint16(out[i*4:], uint16(int16(l)))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(int16(r)))
	}
	return out, nil
}
