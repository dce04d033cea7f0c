package mixer

import (
	"encoding/binary"
	"math"

	"github.com/liuscraft/softmix/internal/events"
)

// Mix renders one buffer of len(dst)/2 frames into dst. It is the pull-side
// entry point for callers driving the mixer without a Voice and must not be
// used while the delivery loop is running. len(dst)/2 must not exceed the
// configured buffer size.
func (m *Mixer) Mix(dst []int16) {
	m.mixPass(dst, -1)
}

// mixPass runs one locked mix into dst and publishes completions once the
// lock is released. ring is the ring slot being filled, or -1.
func (m *Mixer) mixPass(dst []int16, ring int) {
	m.mu.Lock()
	if ring >= 0 {
		m.ringState[ring] = BufferMixing
	}
	m.mixLocked(dst)
	// notify is only touched by the goroutine running mix passes.
	names := m.notify[:copy(m.notify, m.finished[:m.finishedN])]
	bus := m.bus
	m.mu.Unlock()

	if bus == nil {
		return
	}
	for _, name := range names {
		bus.Publish(events.StreamFinished{Name: name})
	}
}

// mixLocked is the mixing engine. It never allocates.
func (m *Mixer) mixLocked(dst []int16) {
	frames := len(dst) / Channels
	if frames > m.frames {
		panic("mixer: mix request exceeds buffer capacity")
	}
	m.finishedN = 0
	m.passes++

	// Inaudible anyway: skip the float pass and leave streams where they are.
	if m.master <= Epsilon {
		clear(dst)
		return
	}

	left := m.left[:frames]
	right := m.right[:frames]
	clear(left)
	clear(right)

	mixed := 0
	for i := 0; i < m.count; i++ {
		s := m.slots[i]

		if s.state == Looping && (m.delivered[i] >= s.samplesToPlay || s.samplesPlayed >= s.samplesToPlay) {
			s.rewindLoop()
			m.delivered[i] = 0
		}

		if !m.shouldMix(s) {
			continue
		}

		m.mixStream(s, left, right)
		mixed++

		if s.state != Looping && s.samplesPlayed >= s.samplesToPlay {
			m.retireLocked(s)
		}
	}

	if mixed == 0 {
		clear(dst)
		return
	}

	for i := 0; i < frames; i++ {
		dst[2*i] = toInt16(left[i])
		dst[2*i+1] = toInt16(right[i])
	}
}

func (m *Mixer) shouldMix(s *Stream) bool {
	if s.state == Stopped || s.state == Paused {
		return false
	}
	if m.delivered[s.slot] >= s.samplesToPlay {
		return false
	}
	if s.volume.Global <= Epsilon && !s.fading {
		return false
	}
	return true
}

// mixStream accumulates as many frames of s as fit into left/right. The fade
// envelope advances once per frame so fades are smooth inside a buffer.
func (m *Mixer) mixStream(s *Stream, left, right []float32) {
	n := uint32(len(left))
	if r := s.remaining(); r < n {
		n = r
	}

	s.triggerFades()

	src := s.pcm[int(s.samplesPlayed)*BytesPerFrame:]
	master := m.master
	for i := uint32(0); i < n; i++ {
		if s.fading {
			s.stepFade(float32(s.samplesPlayed+i) * SecondsPerSample)
		}
		vol := master * s.volume.Global

		off := i * BytesPerFrame
		l := float32(int16(binary.LittleEndian.Uint16(src[off:])))
		r := float32(int16(binary.LittleEndian.Uint16(src[off+2:])))

		left[i] += vol * s.volume.Left * l
		right[i] += vol * s.volume.Right * r
	}

	s.samplesPlayed += n
	m.delivered[s.slot] += n
}

// retireLocked stops a stream that has played its scheduled samples. The
// cursor stays at the end; the next play command rewinds it.
func (m *Mixer) retireLocked(s *Stream) {
	s.state = Stopped
	m.delivered[s.slot] = 0
	s.endFade()
	if m.finishedN < len(m.finished) {
		m.finished[m.finishedN] = s.name
		m.finishedN++
	}
}

// toInt16 rounds half up (add 0.5, truncate toward negative infinity) so
// integral values pass through unchanged, then clamps to the int16 range.
func toInt16(v float32) int16 {
	r := math.Floor(float64(v) + 0.5)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}
