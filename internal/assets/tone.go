package assets

import (
	"encoding/binary"
	"math"

	"github.com/liuscraft/softmix/internal/mixer"
)

// SineWave 生成指定频率和时长的立体声正弦波，amplitude 取值 0..1
func SineWave(freq, seconds, amplitude float64) []byte {
	samples := int(seconds * mixer.SampleRate)
	if samples <= 0 {
		return nil
	}
	amplitude = math.Max(0, math.Min(1, amplitude))

	data := make([]byte, samples*mixer.BytesPerFrame)
	for i := 0; i < samples; i++ {
		t := float64(i) / mixer.SampleRate
		sample := uint16(int16(math.MaxInt16 * amplitude * math.Sin(2*math.Pi*freq*t)))

		binary.LittleEndian.PutUint16(data[i*4:], sample)
		binary.LittleEndian.PutUint16(data[i*4+2:], sample)
	}
	return data
}
