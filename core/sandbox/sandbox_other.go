//go:build !linux

package sandbox

import "github.com/rs/zerolog"

// noopStrategy is the documented fallback on platforms without
// syscall filtering. Apply succeeds and enforces nothing.
type noopStrategy struct {
	logger zerolog.Logger
}

func platformStrategy(logger zerolog.Logger) Strategy {
	return &noopStrategy{logger: logger}
}

func (s *noopStrategy) Name() string { return "none" }

func (s *noopStrategy) Available() bool { return false }

func (s *noopStrategy) Apply() error {
	s.logger.Warn().Msg("syscall filtering not supported on this platform, sandbox is a no-op")
	return nil
}
