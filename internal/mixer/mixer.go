package mixer

import (
	"sync"

	"github.com/liuscraft/softmix/internal/events"
	"github.com/liuscraft/softmix/internal/logging"
)

// Output format. Everything entering and leaving the mixer is interleaved
// signed 16-bit little-endian stereo at 48 kHz.
const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	BytesPerFrame = Channels * BitDepth / 8

	SecondsPerSample float32 = 1.0 / SampleRate

	// Epsilon is the volume at or below which a stream or the master bus is inaudible.
	Epsilon float32 = 1e-4
)

// Config sizes the mixer. It is fixed for the lifetime of a Mixer.
type Config struct {
	MaxStreams   int     // number of mixing slots
	BufferSize   int     // bytes per output buffer, a multiple of BytesPerFrame
	QueueDepth   int     // output buffers kept queued on the voice
	MasterVolume float32 // initial master volume
}

// DefaultConfig 默认配置：16 个混音槽，2400 字节输出缓冲（12.5ms），队列深度 4
func DefaultConfig() *Config {
	return &Config{
		MaxStreams:   16,
		BufferSize:   2400,
		QueueDepth:   4,
		MasterVolume: 1.0,
	}
}

// BufferFrames is the number of stereo frames in one output buffer.
func (c Config) BufferFrames() int {
	return c.BufferSize / BytesPerFrame
}

func (c *Config) validate() error {
	if c.MaxStreams <= 0 {
		return invalidConfig("max streams must be positive")
	}
	if c.BufferSize <= 0 || c.BufferSize%BytesPerFrame != 0 {
		return invalidConfig("buffer size must be a positive multiple of 4 bytes")
	}
	if c.QueueDepth <= 0 {
		return invalidConfig("queue depth must be positive")
	}
	if c.MasterVolume < 0 {
		return invalidConfig("master volume must be non-negative")
	}
	return nil
}

// Mixer combines registered streams into one stereo signal and keeps a
// Voice supplied with mixed buffers. One mutex guards every stream, the slot
// table and the accumulation buffers; it is shared by the control methods and
// the delivery goroutine.
type Mixer struct {
	config Config
	frames int

	mu        sync.Mutex
	catalogue map[string]*Stream
	slots     []*Stream
	count     int
	delivered []uint32
	left      []float32
	right     []float32
	master    float32

	finished  []string
	finishedN int
	notify    []string

	voice Voice
	bus   events.Publisher

	ring      [][]int16
	ringState []BufferState
	ringIndex int
	wake      chan struct{}
	stop      chan struct{}
	wg        sync.WaitGroup
	running   bool
	err       error
	session   *logging.SessionLogger

	passes    uint64
	submitted uint64
}

// New creates a mixer feeding voice. voice may be nil when the caller pulls
// buffers itself with Mix; Start then fails with ErrNoVoice.
func New(voice Voice, config *Config) (*Mixer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	frames := config.BufferFrames()
	m := &Mixer{
		config:    *config,
		frames:    frames,
		catalogue: make(map[string]*Stream),
		slots:     make([]*Stream, config.MaxStreams),
		delivered: make([]uint32, config.MaxStreams),
		left:      make([]float32, frames),
		right:     make([]float32, frames),
		master:    config.MasterVolume,
		finished:  make([]string, config.MaxStreams),
		notify:    make([]string, config.MaxStreams),
		voice:     voice,
		ring:      make([][]int16, config.QueueDepth),
		ringState: make([]BufferState, config.QueueDepth),
		wake:      make(chan struct{}, 1),
	}
	for i := range m.ring {
		m.ring[i] = make([]int16, frames*Channels)
	}
	return m, nil
}

// SetEventBus sets where StreamFinished and BackendFailed events go.
func (m *Mixer) SetEventBus(bus events.Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bus = bus
}

// Config returns the mixer's sizing.
func (m *Mixer) Config() Config {
	return m.config
}

// Stats is a snapshot of delivery counters.
type Stats struct {
	Passes        uint64        `json:"passes"`
	Submitted     uint64        `json:"submitted"`
	ActiveStreams int           `json:"active_streams"`
	Registered    int           `json:"registered"`
	Running       bool          `json:"running"`
	Session       uint64        `json:"session"`
	Buffers       []BufferState `json:"buffers"`
}

func (m *Mixer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	buffers := make([]BufferState, len(m.ringState))
	copy(buffers, m.ringState)
	return Stats{
		Passes:        m.passes,
		Submitted:     m.submitted,
		ActiveStreams: m.count,
		Registered:    len(m.catalogue),
		Running:       m.running,
		Session:       m.session.ID(),
		Buffers:       buffers,
	}
}

// Err returns the error that ended the delivery loop, if any.
func (m *Mixer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mixer) publish(event events.Event) {
	m.mu.Lock()
	bus := m.bus
	m.mu.Unlock()
	if bus != nil {
		bus.Publish(event)
	}
}

// signal is a non-blocking send on an auto-reset event channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
