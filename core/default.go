package unwrap

import (
	"github.com/meigma/unwrap/core/atlas"
	"github.com/meigma/unwrap/core/atlas/chartpack"
)

// NewDefault returns a Service backed by the built-in chart packer and the
// default lightmap packing policy.
func NewDefault(opts ...Option) (*Service, error) {
	var cfg Service
	for _, opt := range opts {
		opt(&cfg)
	}
	gen, err := atlas.NewAdapter(chartpack.New(), atlas.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	return New(gen, opts...)
}
