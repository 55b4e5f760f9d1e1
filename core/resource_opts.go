package unwrap

import "log/slog"

// ResourceOption configures a ResourceCache.
type ResourceOption func(*ResourceCache)

// WithResourceLogger sets the logger for the resource cache.
// If nil, a discard logger is used (default behavior).
func WithResourceLogger(logger *slog.Logger) ResourceOption {
	return func(c *ResourceCache) {
		c.logger = logger
	}
}
