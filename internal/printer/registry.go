package printer

import (
	"fmt"
	"sort"
)

const (
	TargetSmall  = "small"
	TargetMedium = "medium"
	TargetLarge  = "large"
	// TargetURL selects the caller-supplied override URL instead of the registry.
	TargetURL = "url"
)

// Target is a named registry entry.
type Target struct {
	Name string
	URL  string
}

// Registry maps the named targets to generator base URLs. It is built once at
// startup and never modified, so it is safe for concurrent use.
type Registry struct {
	urls map[string]string
}

// NewRegistry builds a registry. Empty URLs are kept so that resolving that
// target reports a missing configuration.
func NewRegistry(small, medium, large string) *Registry {
	return &Registry{
		urls: map[string]string{
			TargetSmall:  small,
			TargetMedium: medium,
			TargetLarge:  large,
		},
	}
}

// MissingTargetError is returned when a target resolves to no URL.
type MissingTargetError struct {
	Target string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("no printer URL configured for target %q", e.Target)
}

// Resolve returns the generator base URL for target. The "url" target uses
// override verbatim; any other name is looked up in the registry. Unknown
// names and empty URLs both yield *MissingTargetError.
func (r *Registry) Resolve(target, override string) (string, error) {
	var baseURL string
	if target == TargetURL {
		baseURL = override
	} else {
		baseURL = r.urls[target]
	}

	if baseURL == "" {
		return "", &MissingTargetError{Target: target}
	}

	return baseURL, nil
}

// Targets returns the named targets that have a URL, sorted by name.
func (r *Registry) Targets() []Target {
	targets := make([]Target, 0, len(r.urls))
	for name, u := range r.urls {
		if u == "" {
			continue
		}
		targets = append(targets, Target{Name: name, URL: u})
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})

	return targets
}

// IsKnown reports whether target is one of the four accepted target names.
func IsKnown(target string) bool {
	switch target {
	case TargetSmall, TargetMedium, TargetLarge, TargetURL:
		return true
	default:
		return false
	}
}
