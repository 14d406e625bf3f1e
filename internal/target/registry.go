package target

import (
	"fmt"
	"net/url"

	"go.uber.org/fx"
	"proxy-checker/internal/config"
	"proxy-checker/internal/domain"
)

var Module = fx.Options(
	fx.Provide(func(cfg *config.Config) (*Registry, error) {
		return NewRegistry(cfg.Probe.Targets, cfg.Probe.PrimaryTarget)
	}),
)

// Registry is the fixed, ordered list of probe targets. It is never mutated
// after construction.
type Registry struct {
	targets []domain.ProbeTarget
	primary int
}

func NewRegistry(targets []domain.ProbeTarget, primary int) (*Registry, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one probe target is required")
	}
	if primary < 0 || primary >= len(targets) {
		return nil, fmt.Errorf("primary target index %d out of range [0,%d)", primary, len(targets))
	}

	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t.Name == "" {
			return nil, fmt.Errorf("probe target name cannot be empty")
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("duplicate probe target name: %s", t.Name)
		}
		seen[t.Name] = struct{}{}

		u, err := url.Parse(t.URL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid url for probe target %s: %q", t.Name, t.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("probe target %s must use http or https", t.Name)
		}
	}

	owned := make([]domain.ProbeTarget, len(targets))
	copy(owned, targets)

	return &Registry{
		targets: owned,
		primary: primary,
	}, nil
}

func (r *Registry) Targets() []domain.ProbeTarget {
	out := make([]domain.ProbeTarget, len(r.targets))
	copy(out, r.targets)
	return out
}

func (r *Registry) Len() int {
	return len(r.targets)
}

func (r *Registry) At(i int) domain.ProbeTarget {
	return r.targets[i]
}

// Primary is the index of the target whose body carries the egress IP.
func (r *Registry) Primary() int {
	return r.primary
}
