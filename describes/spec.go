package describes

import "maps"

// Spec is the configuration a suite hands to its fixture factory. Fixtures
// read the keys they understand; nothing is validated here.
type Spec struct {
	// Browsers lists the requested browser engines, e.g. "chrome".
	Browsers []string `yaml:"browsers"`
	// Engines names the automation engines the suite was written against.
	Engines []string `yaml:"engines"`
	// Options carries fixture-specific settings.
	Options map[string]any `yaml:"options"`
}

// Option returns a fixture-specific setting.
func (s Spec) Option(key string) (any, bool) {
	v, ok := s.Options[key]
	return v, ok
}

// clone detaches the spec from the caller so the suite sees a stable copy.
func (s Spec) clone() Spec {
	return Spec{
		Browsers: append([]string(nil), s.Browsers...),
		Engines:  append([]string(nil), s.Engines...),
		Options:  maps.Clone(s.Options),
	}
}
