package mixer

import (
	"github.com/liuscraft/softmix/internal/logging"
)

// KeepVolume passed as the volume to Play leaves the stream's global volume as it is.
const KeepVolume float32 = -1

// PlayParams is the extended form of a play command.
type PlayParams struct {
	Volume    Volume
	Duration  float32 // seconds to play from the start, 0 plays the whole sound
	FadeIn    float32 // seconds, 0 uses DefaultFadeInTime
	FadeOut   float32 // seconds, 0 uses DefaultFadeOutTime
	Flags     Flags
	FadeCurve FadeCurve
	Loop      bool
}

// DefaultPlayParams plays the whole sound once at unity volume without fades.
func DefaultPlayParams() PlayParams {
	return PlayParams{
		Volume:    UnityVolume(),
		FadeCurve: FadeLinear,
	}
}

// FadeParams describes a fade started by hand.
type FadeParams struct {
	To       float32
	Duration float32 // seconds, must be positive
	Curve    FadeCurve
	// Hold keeps To as the stream's volume after the fade instead of
	// restoring the volume from before the fade.
	Hold bool
}

// Play starts s, or restarts it if it has played to the end. A volume below
// zero keeps the current global volume. If every slot is taken the stream is
// silently not started; IsPlaying then reports false.
func (m *Mixer) Play(s *Stream, volume float32, loop bool) {
	m.mu.Lock()
	admitted := m.playLocked(s, volume, loop)
	m.mu.Unlock()
	logAdmission(s, admitted)
}

// PlayByName is Play for the stream registered as name.
func (m *Mixer) PlayByName(name string, volume float32, loop bool) {
	m.mu.Lock()
	s := m.catalogue[name]
	admitted := m.playLocked(s, volume, loop)
	m.mu.Unlock()
	logAdmission(s, admitted)
}

// PlayWith starts s with the extended parameters.
func (m *Mixer) PlayWith(s *Stream, p PlayParams) {
	m.mu.Lock()
	admitted := m.playWithLocked(s, p)
	m.mu.Unlock()
	logAdmission(s, admitted)
}

// PlayByNameWith is PlayWith for the stream registered as name.
func (m *Mixer) PlayByNameWith(name string, p PlayParams) {
	m.mu.Lock()
	s := m.catalogue[name]
	admitted := m.playWithLocked(s, p)
	m.mu.Unlock()
	logAdmission(s, admitted)
}

// Stop halts s and rewinds it.
func (m *Mixer) Stop(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(s)
}

func (m *Mixer) StopByName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(m.catalogue[name])
}

// Pause halts s where it is; Resume or StartAll continues it.
func (m *Mixer) Pause(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked(s)
}

func (m *Mixer) PauseByName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked(m.catalogue[name])
}

// Resume continues a paused stream in the mode it was paused from.
func (m *Mixer) Resume(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeLocked(s)
}

func (m *Mixer) ResumeByName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeLocked(m.catalogue[name])
}

// Remove frees the slot of s. The stream stays registered and can be played again.
func (m *Mixer) Remove(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(s)
}

func (m *Mixer) RemoveByName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(m.catalogue[name])
}

// StopAll stops and rewinds every slotted stream.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
}

// PauseAll pauses every slotted stream that is playing.
func (m *Mixer) PauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < m.count; i++ {
		m.pauseLocked(m.slots[i])
	}
}

// StartAll resumes paused streams and starts stopped ones.
func (m *Mixer) StartAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < m.count; i++ {
		s := m.slots[i]
		switch s.state {
		case Paused:
			m.resumeLocked(s)
		case Stopped:
			m.startLocked(s, s.resume == Looping)
		}
	}
}

// IsPlaying reports whether s holds a slot and still has samples to play.
func (m *Mixer) IsPlaying(s *Stream) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return isPlaying(s)
}

func (m *Mixer) IsPlayingByName(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return isPlaying(m.catalogue[name])
}

// SetMasterVolume sets the gain applied to the whole mix. Negative values are treated as 0.
func (m *Mixer) SetMasterVolume(volume float32) {
	if volume < 0 {
		volume = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.master = volume
}

func (m *Mixer) MasterVolume() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.master
}

// SetVolume replaces the volume of s. While a fade is running the new volume
// becomes the one restored when the fade ends, and the channel gains apply at once.
func (m *Mixer) SetVolume(s *Stream, v Volume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setVolumeLocked(s, v)
}

func (m *Mixer) SetVolumeByName(name string, v Volume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	setVolumeLocked(m.catalogue[name], v)
}

// Volume returns the volume set on s. During a fade this is the volume the
// fade restores, not the momentary faded level.
func (m *Mixer) Volume(s *Stream) Volume {
	if s == nil {
		return Volume{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.settled()
}

// Fade starts a fade of the global volume of s from its current value. It
// does nothing if s is not slotted or a fade is already running.
func (m *Mixer) Fade(s *Stream, p FadeParams) error {
	if p.Duration <= 0 {
		return ErrInvalidFade
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fadeLocked(s, p)
	return nil
}

func (m *Mixer) FadeByName(name string, p FadeParams) error {
	if p.Duration <= 0 {
		return ErrInvalidFade
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fadeLocked(m.catalogue[name], p)
	return nil
}

func (m *Mixer) playLocked(s *Stream, volume float32, loop bool) bool {
	if s == nil {
		return true
	}
	s.endFade()
	if volume >= 0 {
		s.volume.Global = volume
	}
	return m.startLocked(s, loop)
}

func (m *Mixer) playWithLocked(s *Stream, p PlayParams) bool {
	if s == nil {
		return true
	}
	s.endFade()
	s.volume = p.Volume
	s.fadeIn = p.FadeIn
	s.fadeOut = p.FadeOut
	s.flags = p.Flags
	s.curve = p.FadeCurve
	if s.curve == 0 {
		s.curve = FadeLinear
	}

	s.samplesToPlay = s.sampleCount
	if p.Duration > 0 {
		s.samplesToPlay = min(uint32(p.Duration*SampleRate), s.sampleCount)
	}
	return m.startLocked(s, p.Loop)
}

// startLocked rewinds a fully played stream, sets its play mode and admits
// it to a slot.
func (m *Mixer) startLocked(s *Stream, loop bool) bool {
	if s.samplesPlayed >= s.samplesToPlay {
		s.samplesPlayed = 0
		if s.slot != NoSlot {
			m.delivered[s.slot] = 0
		}
	}
	if s.samplesPlayed == 0 {
		s.fadedIn = false
	}

	s.state = Playing
	if loop {
		s.state = Looping
	}
	s.resume = s.state
	return m.activateLocked(s)
}

func (m *Mixer) stopLocked(s *Stream) {
	if s == nil || s.slot == NoSlot {
		return
	}
	s.state = Stopped
	s.samplesPlayed = 0
	m.delivered[s.slot] = 0
	s.endFade()
}

func (m *Mixer) stopAllLocked() {
	for i := 0; i < m.count; i++ {
		m.stopLocked(m.slots[i])
	}
}

func (m *Mixer) pauseLocked(s *Stream) {
	if s == nil || s.slot == NoSlot {
		return
	}
	if s.state == Playing || s.state == Looping {
		s.resume = s.state
		s.state = Paused
	}
}

func (m *Mixer) resumeLocked(s *Stream) {
	if s == nil || s.slot == NoSlot || s.state != Paused {
		return
	}
	s.state = s.resume
}

func (m *Mixer) removeLocked(s *Stream) {
	if s == nil || s.slot == NoSlot {
		return
	}
	m.stopLocked(s)
	m.deactivateLocked(s)
}

func isPlaying(s *Stream) bool {
	if s == nil || s.slot == NoSlot {
		return false
	}
	switch s.state {
	case Looping:
		return s.samplesToPlay > 0
	case Playing:
		return s.samplesToPlay > s.samplesPlayed
	default:
		return false
	}
}

func setVolumeLocked(s *Stream, v Volume) {
	if s == nil {
		return
	}
	if s.fading {
		s.fade.Saved = v
		s.volume.Left = v.Left
		s.volume.Right = v.Right
		return
	}
	s.volume = v
}

func fadeLocked(s *Stream, p FadeParams) {
	if s == nil || s.slot == NoSlot || s.fading {
		return
	}
	to := p.To
	if to < 0 {
		to = 0
	}
	s.beginFade(p.Curve, -1, to, s.elapsed(), p.Duration)
	if p.Hold {
		s.fade.Saved.Global = to
	}
}

func logAdmission(s *Stream, admitted bool) {
	if s != nil && !admitted {
		logging.Warnf("Mixer: no free slot for stream %s, not started", s.name)
	}
}
