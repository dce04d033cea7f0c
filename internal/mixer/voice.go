package mixer

// Voice is the hardware output queue the delivery loop feeds.
//
// Submit takes ownership of buf until the voice has finished playing it; the
// mixer rewrites a ring buffer only after Queued has dropped below the ring
// size, so voices must play buffers in submission order and may keep the
// slice without copying. Consumed delivers a signal each time a submitted
// buffer finishes; signals may be coalesced. All methods must be safe to call
// from any goroutine.
type Voice interface {
	Queued() int
	Submit(buf []int16) error
	Consumed() <-chan struct{}
	Start() error
	Stop() error
	Flush() error
	Close() error
}

// BufferState tracks one output ring buffer.
type BufferState int

const (
	BufferIdle BufferState = iota
	BufferMixing
	BufferSubmitted
)

func (s BufferState) String() string {
	switch s {
	case BufferIdle:
		return "Idle"
	case BufferMixing:
		return "Mixing"
	case BufferSubmitted:
		return "Submitted"
	default:
		return "Unknown"
	}
}

// MarshalText renders the state by name in Stats.
func (s BufferState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
