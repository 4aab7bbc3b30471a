package definitions

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/supby/zbridge/internal/types"
)

var ErrDuplicateModel = errors.New("duplicate zigbee model")

// Registry maps zigbee model ids (as reported by the Basic cluster) to definitions.
// It is read-only after construction.
type Registry struct {
	definitions map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
	}
}

// Add registers def under each of the given zigbee model ids, or under def.Model when none are given.
func (r *Registry) Add(def *Definition, zigbeeModels ...string) error {
	if len(zigbeeModels) == 0 {
		zigbeeModels = []string{def.Model}
	}

	for _, m := range zigbeeModels {
		if _, ok := r.definitions[m]; ok {
			return fmt.Errorf("%w: '%v'", ErrDuplicateModel, m)
		}
	}

	for _, m := range zigbeeModels {
		r.definitions[m] = def
	}

	return nil
}

func (r *Registry) DefinitionFor(modelID string) (*Definition, bool) {
	def, ok := r.definitions[modelID]
	return def, ok
}

func (r *Registry) Len() int {
	return len(r.definitions)
}

type yamlDefinition struct {
	ZigbeeModel []string              `yaml:"zigbee_model"`
	Model       string                `yaml:"model"`
	Vendor      string                `yaml:"vendor"`
	Description string                `yaml:"description"`
	Endpoints   map[string]uint8      `yaml:"endpoints"`
	Config      *types.ProtocolConfig `yaml:"config"`
	Converters  []ConverterSpec       `yaml:"converters"`
}

type yamlCatalogue struct {
	Devices []yamlDefinition `yaml:"devices"`
}

func LoadFile(filename string) (*Registry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("definitions file %v: %w", filename, err)
	}

	return r, nil
}

func Parse(data []byte) (*Registry, error) {
	var catalogue yamlCatalogue
	if err := yaml.UnmarshalStrict(data, &catalogue); err != nil {
		return nil, err
	}

	r := NewRegistry()
	for i, yd := range catalogue.Devices {
		if yd.Model == "" {
			return nil, fmt.Errorf("device #%d has no model", i)
		}

		def := &Definition{
			Model:       yd.Model,
			Vendor:      yd.Vendor,
			Description: yd.Description,
			Endpoints:   yd.Endpoints,
			Config:      yd.Config,
		}

		for _, spec := range yd.Converters {
			c, err := NewConverter(spec)
			if err != nil {
				return nil, fmt.Errorf("model '%v': %w", yd.Model, err)
			}
			def.Converters = append(def.Converters, c)
		}

		if err := r.Add(def, yd.ZigbeeModel...); err != nil {
			return nil, err
		}
	}

	return r, nil
}
