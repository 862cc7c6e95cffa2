package platform

import (
	"go.trai.ch/incr/internal/adapters/kvstore"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

// Open opens the platform cache selected by opts.Platform.
func Open(opts domain.Options, open kvstore.Factory) (ports.PlatformCache, error) {
	switch opts.Platform {
	case domain.PlatformJVM:
		c, err := NewJVM(open, opts.OutputDir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case domain.PlatformJS:
		c, err := NewJS(open, opts.OutputDir)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPlatform, "open platform cache"), "platform", string(opts.Platform))
	}
}
