package unwrap

import "log/slog"

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventFunc sets a callback invoked once per Unwrap with its outcome.
func WithEventFunc(fn EventFunc) Option {
	return func(s *Service) {
		s.onEvent = fn
	}
}

// WithDiscardCorrupt controls how Unwrap treats a blob that fails to decode.
//
// By default Unwrap returns ErrCorruptCache. When enabled, the blob is
// discarded and the call proceeds as a miss against an empty cache, so the
// returned blob holds only the fresh record.
func WithDiscardCorrupt(enabled bool) Option {
	return func(s *Service) {
		s.discardCorrupt = enabled
	}
}
