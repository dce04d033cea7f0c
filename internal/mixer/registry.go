package mixer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/liuscraft/softmix/internal/logging"
)

// Register adds a decoded sound to the catalogue under name. pcm holds
// interleaved s16le stereo frames; a trailing partial frame is ignored. The
// stream starts Stopped and holds no slot until it is first played.
func (m *Mixer) Register(name string, pcm []byte) (*Stream, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	if _, ok := m.catalogue[name]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrStreamExists, name)
	}
	s := newStream(name, pcm)
	m.catalogue[name] = s
	m.mu.Unlock()

	logging.Debugf("Mixer: registered stream %s (%d frames)", name, s.sampleCount)
	return s, nil
}

// Unregister removes the named stream from its slot and from the catalogue.
// Unknown names are ignored.
func (m *Mixer) Unregister(name string) {
	m.mu.Lock()
	s, ok := m.catalogue[name]
	if ok {
		m.removeLocked(s)
		delete(m.catalogue, name)
	}
	m.mu.Unlock()

	if ok {
		logging.Debugf("Mixer: unregistered stream %s", name)
	}
}

// FindByName returns the registered stream called name, or nil. Streams that
// have never been played are found as well.
func (m *Mixer) FindByName(name string) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogue[name]
}

// StreamCount returns the number of streams holding a mixing slot.
func (m *Mixer) StreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Capacity returns the number of mixing slots.
func (m *Mixer) Capacity() int {
	return len(m.slots)
}

// Slot returns the stream's slot index, or NoSlot.
func (m *Mixer) Slot(s *Stream) int {
	if s == nil {
		return NoSlot
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.slot
}

// Snapshot copies the state of every registered stream, ordered by name.
func (m *Mixer) Snapshot() []StreamStatus {
	m.mu.Lock()
	out := make([]StreamStatus, 0, len(m.catalogue))
	for _, s := range m.catalogue {
		out = append(out, s.status())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// activateLocked gives s the next free slot. It reports false when s could
// not be admitted because every slot is taken.
func (m *Mixer) activateLocked(s *Stream) bool {
	if s.slot != NoSlot {
		return true
	}
	if m.count >= len(m.slots) {
		return false
	}
	s.slot = m.count
	m.slots[m.count] = s
	m.delivered[m.count] = s.samplesPlayed
	m.count++
	signal(m.wake)
	return true
}

// deactivateLocked frees the slot of s. Later slots move down by one so the
// table stays dense, and their delivered counters move with them.
func (m *Mixer) deactivateLocked(s *Stream) {
	idx := s.slot
	if idx == NoSlot {
		return
	}
	last := m.count - 1
	for i := idx; i < last; i++ {
		m.slots[i] = m.slots[i+1]
		m.slots[i].slot = i
		m.delivered[i] = m.delivered[i+1]
	}
	m.slots[last] = nil
	m.delivered[last] = 0
	m.count--
	s.slot = NoSlot
}
