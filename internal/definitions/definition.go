// Package definitions holds per-model device data: which converters translate payload
// keys into ZCL commands, how endpoint names map to endpoint ids and which protocol
// flags a model needs.
package definitions

import (
	"github.com/supby/zbridge/internal/types"
)

// Converter translates one payload key into one ZCL command.
type Converter interface {
	Key() string
	// Matches may inspect the value; a converter rejecting it lets the next one try.
	Matches(key string, value interface{}) bool
	Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error)
	// EndpointHint is the endpoint used when the topic names none.
	EndpointHint() types.Endpoint
}

// Reader is implemented by converters which can answer get messages.
type Reader interface {
	Read(key string, def *Definition) (*types.Command, error)
}

type Definition struct {
	Model       string
	Vendor      string
	Description string
	Converters  []Converter
	// endpoint name from the topic -> endpoint id; empty for single endpoint models
	Endpoints map[string]uint8
	Config    *types.ProtocolConfig
}

func (d *Definition) ProtocolConfig() types.ProtocolConfig {
	if d.Config != nil {
		return *d.Config
	}

	return types.DefaultProtocolConfig
}

// Endpoint looks up an endpoint id by the name used in topics.
func (d *Definition) Endpoint(name string) (uint8, bool) {
	id, ok := d.Endpoints[name]
	return id, ok
}

// Converter returns the first converter accepting key and value.
func (d *Definition) Converter(key string, value interface{}) (Converter, bool) {
	for _, c := range d.Converters {
		if c.Matches(key, value) {
			return c, true
		}
	}

	return nil, false
}

// KeyConverter returns the first converter bound to key regardless of value, used for get messages.
func (d *Definition) KeyConverter(key string) (Converter, bool) {
	for _, c := range d.Converters {
		if c.Key() == key {
			return c, true
		}
	}

	return nil, false
}
