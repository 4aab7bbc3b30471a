package types

import "fmt"

type EndpointKind uint8

const (
	// no preference expressed
	EndpointUnset EndpointKind = iota
	// let the network layer pick the device's default endpoint
	EndpointDeviceDefault
	// a concrete endpoint id
	EndpointExplicit
)

// Endpoint keeps "device default" apart from "endpoint 1"; the zero value is unset.
type Endpoint struct {
	Kind EndpointKind
	ID   uint8
}

func DeviceDefaultEndpoint() Endpoint {
	return Endpoint{Kind: EndpointDeviceDefault}
}

func ExplicitEndpoint(id uint8) Endpoint {
	return Endpoint{Kind: EndpointExplicit, ID: id}
}

func (e Endpoint) IsSet() bool {
	return e.Kind != EndpointUnset
}

// Explicit returns the endpoint id when one was chosen.
func (e Endpoint) Explicit() (uint8, bool) {
	if e.Kind != EndpointExplicit {
		return 0, false
	}

	return e.ID, true
}

func (e Endpoint) String() string {
	switch e.Kind {
	case EndpointExplicit:
		return fmt.Sprintf("%d", e.ID)
	case EndpointDeviceDefault:
		return "default"
	default:
		return "unset"
	}
}
