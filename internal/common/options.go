package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"proxy-checker/internal/config"
)

// ServiceOptions defines common options for building the application
type ServiceOptions struct {
	Logger   *zap.Logger
	Env      string
	Config   *config.Config
	Platform *config.Platform
	Registry prometheus.Registerer
}

// Option defines a service option modifier
type Option func(*ServiceOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *ServiceOptions) {
		o.Logger = logger
	}
}

func WithEnv(env string) Option {
	return func(o *ServiceOptions) {
		o.Env = env
	}
}

// WithConfig skips loading the configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(o *ServiceOptions) {
		o.Config = cfg
	}
}

// WithPlatform overrides the detected platform directories.
func WithPlatform(p config.Platform) Option {
	return func(o *ServiceOptions) {
		o.Platform = &p
	}
}

// WithRegistry registers metrics somewhere other than the default registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *ServiceOptions) {
		o.Registry = reg
	}
}
