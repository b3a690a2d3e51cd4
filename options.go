// options.go: attach-time options shared by Producer and Consumer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package conduit

// Option configures an endpoint at attach time.
type Option func(*endpointConfig)

type endpointConfig struct {
	errorCallback func(op string, err error)
}

func newEndpointConfig(opts []Option) *endpointConfig {
	cfg := &endpointConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithErrorCallback registers a function called whenever a blocking
// operation on the endpoint returns a non-timeout terminal error, mirroring
// the teacher library's own ErrorCallback hook. It is useful for custom
// logging or error metrics without forcing every caller of this package
// to depend on a particular logging library.
func WithErrorCallback(cb func(op string, err error)) Option {
	return func(cfg *endpointConfig) {
		cfg.errorCallback = cb
	}
}

func (cfg *endpointConfig) report(op string, err error) error {
	if cfg.errorCallback != nil && err != nil {
		if e, ok := err.(*Error); !ok || e.Kind != KindTimeout {
			cfg.errorCallback(op, err)
		}
	}
	return err
}
