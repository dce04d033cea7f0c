package mixer

// PlayState is the playback state of a stream.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Looping
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Looping:
		return "Looping"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Flags requests automatic fades on playback.
type Flags uint32

const (
	FlagFadeOut Flags = 0x10
	FlagFadeIn  Flags = 0x20
)

// NoSlot marks a stream that holds no mixing slot.
const NoSlot = -1

// Stream is one decoded sound registered with a Mixer. The PCM buffer is
// owned by the caller and must stay valid while the stream is registered.
// All fields are guarded by the owning mixer's lock.
type Stream struct {
	name string
	pcm  []byte

	slot          int
	sampleCount   uint32
	samplesPlayed uint32
	samplesToPlay uint32

	state  PlayState
	resume PlayState // state a paused stream returns to
	flags  Flags

	volume  Volume
	fade    FadeEnvelope
	fading  bool
	curve   FadeCurve
	fadeIn  float32
	fadeOut float32
	fadedIn bool // the automatic fade-in already ran for this playback
}

func newStream(name string, pcm []byte) *Stream {
	count := uint32(len(pcm) / BytesPerFrame)
	return &Stream{
		name:          name,
		pcm:           pcm,
		slot:          NoSlot,
		sampleCount:   count,
		samplesToPlay: count,
		state:         Stopped,
		resume:        Playing,
		volume:        UnityVolume(),
		curve:         FadeLinear,
	}
}

// Name returns the name the stream was registered under.
func (s *Stream) Name() string { return s.name }

// SampleCount returns the number of stereo frames in the stream's buffer.
func (s *Stream) SampleCount() uint32 { return s.sampleCount }

// StreamStatus is a point-in-time copy of a stream's state. Volume is the
// volume set on the stream; while a fade runs that is the volume restored when
// the fade ends, and Current holds the faded level.
type StreamStatus struct {
	Name          string `json:"name"`
	Slot          int    `json:"slot"`
	State         string `json:"state"`
	SampleCount   uint32 `json:"sample_count"`
	SamplesPlayed uint32 `json:"samples_played"`
	SamplesToPlay uint32 `json:"samples_to_play"`
	Volume        Volume `json:"volume"`
	Current       Volume `json:"current"`
	Fading        bool   `json:"fading"`
}

func (s *Stream) status() StreamStatus {
	return StreamStatus{
		Name:          s.name,
		Slot:          s.slot,
		State:         s.state.String(),
		SampleCount:   s.sampleCount,
		SamplesPlayed: s.samplesPlayed,
		SamplesToPlay: s.samplesToPlay,
		Volume:        s.settled(),
		Current:       s.volume,
		Fading:        s.fading,
	}
}

// settled returns the volume the stream has once any running fade is over.
func (s *Stream) settled() Volume {
	if s.fading {
		return s.fade.Saved
	}
	return s.volume
}

// elapsed is the stream's playback position in seconds.
func (s *Stream) elapsed() float32 {
	return float32(s.samplesPlayed) * SecondsPerSample
}

func (s *Stream) remaining() uint32 {
	if s.samplesPlayed >= s.samplesToPlay {
		return 0
	}
	return s.samplesToPlay - s.samplesPlayed
}

// rewindLoop moves the cursor of a looping stream back to the start. A fade
// in flight is shifted back by the loop length so its timeline keeps running
// forward across the wrap.
func (s *Stream) rewindLoop() {
	if s.fading {
		loop := float32(s.samplesPlayed) * SecondsPerSample
		s.fade.StartTime -= loop
		s.fade.EndTime -= loop
	}
	s.samplesPlayed = 0
}

// beginFade starts an envelope unless one is already in flight. A negative
// from starts at the current global volume.
func (s *Stream) beginFade(curve FadeCurve, from, to, start, duration float32) {
	if s.fading {
		return
	}
	if from < 0 {
		from = s.volume.Global
	}
	s.fade = NewFadeEnvelope(curve, from, to, start, duration, s.volume)
	s.fading = true
}

// endFade restores the pre-fade volume and clears the envelope.
func (s *Stream) endFade() {
	if !s.fading {
		return
	}
	s.fading = false
	s.volume = s.fade.Saved
	s.fade = FadeEnvelope{}
}

// stepFade advances the active envelope to now.
func (s *Stream) stepFade(now float32) {
	v, done := ComputeFadeVolume(&s.fade, now, s.volume.Global)
	if done {
		s.endFade()
		return
	}
	s.volume.Global = v
}

// triggerFades starts the automatic fade-in or fade-out requested by the
// stream's flags. It is called once per mix pass before the stream is mixed.
func (s *Stream) triggerFades() {
	if s.flags&FlagFadeIn != 0 && !s.fading && !s.fadedIn && s.samplesPlayed == 0 {
		length := s.fadeIn
		if length <= 0 {
			length = DefaultFadeInTime
		}
		s.beginFade(s.curve, 0, s.volume.Global, 0, length)
		s.fadedIn = true
	}

	if s.flags&FlagFadeOut != 0 && !s.fading && s.state != Looping {
		length := s.fadeOut
		if length <= 0 {
			length = DefaultFadeOutTime
		}
		window := uint32(length * SampleRate)
		left := s.remaining()
		if left > 0 && left <= window {
			s.beginFade(s.curve, -1, 0, s.elapsed(), float32(left)*SecondsPerSample)
		}
	}
}
