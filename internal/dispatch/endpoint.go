package dispatch

import (
	"fmt"

	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/types"
)

// ResolveEndpoint picks the endpoint a command goes to: the endpoint named in the
// topic, else the converter's hint, else the device default.
func ResolveEndpoint(endpointName string, def *definitions.Definition, hint types.Endpoint) (types.Endpoint, error) {
	if endpointName != "" {
		id, ok := def.Endpoint(endpointName)
		if !ok {
			return types.Endpoint{}, fmt.Errorf("%w: '%v' for model '%v'", ErrUnknownEndpoint, endpointName, def.Model)
		}

		return types.ExplicitEndpoint(id), nil
	}

	if hint.IsSet() {
		return hint, nil
	}

	return types.DeviceDefaultEndpoint(), nil
}
