package mixer

import (
	"context"
	"fmt"

	"github.com/liuscraft/softmix/internal/events"
	"github.com/liuscraft/softmix/internal/logging"
)

// Start launches the delivery goroutine, which keeps the voice's queue
// filled with mixed buffers until Halt, Close or ctx is done.
func (m *Mixer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.voice == nil {
		return ErrNoVoice
	}
	if m.running {
		return ErrAlreadyRunning
	}
	if err := m.voice.Start(); err != nil {
		return fmt.Errorf("start voice: %w", err)
	}

	m.stop = make(chan struct{})
	m.running = true
	m.err = nil
	m.ringIndex = 0
	for i := range m.ringState {
		m.ringState[i] = BufferIdle
	}

	m.session = logging.StartSession()
	m.wg.Add(1)
	go m.deliver(ctx, m.stop)

	m.session.Infof("Mixer: delivery started (session %d, %d frames x %d buffers)", m.session.ID(), m.frames, len(m.ring))
	return nil
}

// Halt ends the delivery loop, flushes the voice and stops every stream.
// A halted mixer can be started again.
func (m *Mixer) Halt() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	stop := m.stop
	session := m.session
	m.running = false
	m.mu.Unlock()

	// Unstick the wait first, then ask the loop to exit.
	signal(m.wake)
	close(stop)
	m.wg.Wait()

	var firstErr error
	if err := m.voice.Stop(); err != nil {
		session.Errorf("Mixer: failed to stop voice: %v", err)
		firstErr = fmt.Errorf("stop voice: %w", err)
	}
	if err := m.voice.Flush(); err != nil {
		session.Errorf("Mixer: failed to flush voice: %v", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("flush voice: %w", err)
		}
	}

	m.mu.Lock()
	m.stopAllLocked()
	for i := range m.ringState {
		m.ringState[i] = BufferIdle
	}
	m.mu.Unlock()

	session.Infof("Mixer: delivery stopped (session %d, %d buffers submitted)", session.ID(), m.Stats().Submitted)
	return firstErr
}

// Close stops delivery and releases the voice.
func (m *Mixer) Close() error {
	err := m.Halt()
	if m.voice != nil {
		if cerr := m.voice.Close(); cerr != nil {
			logging.Errorf("Mixer: failed to close voice: %v", cerr)
			if err == nil {
				err = fmt.Errorf("close voice: %w", cerr)
			}
		}
	}
	return err
}

// deliver is the delivery loop. The lock is only held inside mixPass and
// never across a wait.
func (m *Mixer) deliver(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	depth := len(m.ring)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if m.StreamCount() == 0 {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-m.wake:
			}
			continue
		}

		// At most one ring's worth per wake so a voice that drains instantly
		// cannot keep the loop from seeing stop.
		for n := 0; n < depth; n++ {
			queued := m.voice.Queued()
			m.markPlayed(queued)
			if queued >= depth {
				break
			}

			idx := m.ringIndex
			buf := m.ring[idx]
			m.mixPass(buf, idx)

			if err := m.voice.Submit(buf); err != nil {
				m.fail(idx, err)
				return
			}

			m.mu.Lock()
			m.ringState[idx] = BufferSubmitted
			m.submitted++
			m.mu.Unlock()
			m.ringIndex = (idx + 1) % depth
		}

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-m.voice.Consumed():
		case <-m.wake:
		}
	}
}

// markPlayed returns to Idle the submitted buffers the voice no longer
// holds. Buffers are played in ring order, so the queued ones are the most
// recently submitted.
func (m *Mixer) markPlayed(queued int) {
	depth := len(m.ring)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := queued; k < depth; k++ {
		idx := (m.ringIndex - 1 - k + 2*depth) % depth
		if m.ringState[idx] == BufferSubmitted {
			m.ringState[idx] = BufferIdle
		}
	}
}

// fail records a submission error. The loop does not retry.
func (m *Mixer) fail(idx int, err error) {
	err = fmt.Errorf("submit buffer: %w", err)

	m.mu.Lock()
	m.err = err
	m.ringState[idx] = BufferIdle
	session := m.session
	m.mu.Unlock()

	session.Errorf("Mixer: delivery loop stopped in session %d: %v", session.ID(), err)
	m.publish(events.BackendFailed{Err: err})
}
