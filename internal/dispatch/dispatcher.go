// Package dispatch turns the keys of an inbound payload into ZCL commands using the
// converters of a device definition.
package dispatch

import (
	"fmt"

	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/types"
)

type Result struct {
	Key      string
	Command  types.Command
	Endpoint types.Endpoint
}

// Dispatcher is stateless and safe for concurrent use.
type Dispatcher struct {
	logger logger.Logger
}

func New(log logger.Logger) *Dispatcher {
	return &Dispatcher{
		logger: log,
	}
}

// Dispatch builds at most one command per payload key, in payload order. Keys without
// a converter are skipped silently; keys whose command cannot be built are reported
// and skipped without affecting the other keys.
func (d *Dispatcher) Dispatch(def *definitions.Definition, msgType types.MessageType, endpointName string, payload types.Payload) []Result {
	ret := make([]Result, 0, len(payload))

	for _, field := range payload {
		converter, ok := findConverter(def, msgType, field)
		if !ok {
			d.logger.Debug("No converter for '%v' on model '%v'", field.Key, def.Model)
			continue
		}

		res, err := d.build(converter, def, msgType, endpointName, field, payload)
		if err != nil {
			d.logger.Error("Skipping '%v' for model '%v': %v", field.Key, def.Model, err)
			continue
		}

		ret = append(ret, res)
	}

	return ret
}

// get payloads carry placeholder values, so only the key is matched for them
func findConverter(def *definitions.Definition, msgType types.MessageType, field types.PayloadField) (definitions.Converter, bool) {
	if msgType == types.MessageTypeGet {
		return def.KeyConverter(field.Key)
	}

	return def.Converter(field.Key, field.Value)
}

func (d *Dispatcher) build(
	converter definitions.Converter,
	def *definitions.Definition,
	msgType types.MessageType,
	endpointName string,
	field types.PayloadField,
	payload types.Payload) (Result, error) {

	var cmd *types.Command
	var err error

	switch msgType {
	case types.MessageTypeGet:
		reader, ok := converter.(definitions.Reader)
		if !ok {
			return Result{}, ErrNoReader
		}
		cmd, err = reader.Read(field.Key, def)
	default:
		cmd, err = converter.Convert(field.Key, field.Value, payload, def)
	}

	if err != nil {
		return Result{}, err
	}
	if cmd == nil {
		return Result{}, fmt.Errorf("converter returned no command")
	}
	if !cmd.Class.Valid() {
		return Result{}, fmt.Errorf("%w: '%v'", ErrInvalidCommandClass, cmd.Class)
	}

	hint := cmd.Endpoint
	if !hint.IsSet() {
		hint = converter.EndpointHint()
	}

	endpoint, err := ResolveEndpoint(endpointName, def, hint)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Key:      field.Key,
		Command:  *cmd,
		Endpoint: endpoint,
	}, nil
}
