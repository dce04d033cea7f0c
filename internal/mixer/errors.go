package mixer

import (
	"errors"
	"fmt"
)

var (
	ErrNoVoice        = errors.New("mixer: no output voice")
	ErrAlreadyRunning = errors.New("mixer: delivery loop already running")
	ErrInvalidConfig  = errors.New("mixer: invalid config")
	ErrInvalidName    = errors.New("mixer: stream name is empty")
	ErrStreamExists   = errors.New("mixer: stream already registered")
	ErrInvalidFade    = errors.New("mixer: fade duration must be positive")
)

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
