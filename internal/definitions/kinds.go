package definitions

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/supby/zbridge/internal/types"
)

var ErrUnknownKind = errors.New("unknown converter kind")

// ConverterSpec is the data form of a converter as found in definition files.
type ConverterSpec struct {
	Kind string `yaml:"kind"`
	// overrides the payload key of the kind
	Key string `yaml:"key,omitempty"`
	// fixed endpoint for models whose controllable unit is not the default endpoint
	Endpoint *uint8 `yaml:"endpoint,omitempty"`
}

type kind struct {
	key string
	new func(base baseConverter) Converter
}

type ConverterFactory func(spec ConverterSpec) (Converter, error)

var (
	kindsMu sync.RWMutex
	kinds   = map[string]ConverterFactory{}
)

func init() {
	builtin := map[string]kind{
		"on_off":         {key: "state", new: func(b baseConverter) Converter { return &onOffConverter{b} }},
		"brightness":     {key: "brightness", new: func(b baseConverter) Converter { return &brightnessConverter{b} }},
		"color_temp":     {key: "color_temp", new: func(b baseConverter) Converter { return &colorTempConverter{b} }},
		"color_xy":       {key: "color", new: func(b baseConverter) Converter { return &colorXYConverter{b} }},
		"cover_state":    {key: "state", new: func(b baseConverter) Converter { return &coverStateConverter{b} }},
		"cover_position": {key: "position", new: func(b baseConverter) Converter { return &coverPositionConverter{b} }},
	}

	for name, k := range builtin {
		k := k
		RegisterKind(name, func(spec ConverterSpec) (Converter, error) {
			base := baseConverter{key: k.key}
			if spec.Key != "" {
				base.key = spec.Key
			}
			if spec.Endpoint != nil {
				base.endpoint = types.ExplicitEndpoint(*spec.Endpoint)
			}

			return k.new(base), nil
		})
	}
}

// RegisterKind makes a converter kind available to definition files. A later
// registration under the same name replaces the earlier one.
func RegisterKind(name string, factory ConverterFactory) {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	kinds[name] = factory
}

func Kinds() []string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	ret := make([]string, 0, len(kinds))
	for name := range kinds {
		ret = append(ret, name)
	}
	sort.Strings(ret)

	return ret
}

func NewConverter(spec ConverterSpec) (Converter, error) {
	kindsMu.RLock()
	factory, ok := kinds[spec.Kind]
	kindsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: '%v'", ErrUnknownKind, spec.Kind)
	}

	return factory(spec)
}

// MustConverter is NewConverter for statically known specs.
func MustConverter(spec ConverterSpec) Converter {
	c, err := NewConverter(spec)
	if err != nil {
		panic(err)
	}

	return c
}
