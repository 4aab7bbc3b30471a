package types

type MessageType string

const (
	MessageTypeSet MessageType = "set"
	MessageTypeGet MessageType = "get"
)

// ParsedTopic is the routable part of a device topic:
// <base>/<DeviceID>[/<Endpoint>]/<Type>
type ParsedTopic struct {
	Type     MessageType
	DeviceID string
	Endpoint string
}

// CommandClass mirrors the two ZCL frame types.
type CommandClass string

const (
	// cluster specific command
	CommandClassFunctional CommandClass = "functional"
	// global (foundation) command, e.g. read/write attributes
	CommandClassGeneric CommandClass = "foundation"
)

func (c CommandClass) Valid() bool {
	return c == CommandClassFunctional || c == CommandClassGeneric
}

type ProtocolConfig struct {
	ManufacturerSpecific   bool `yaml:"manufacturer_specific" json:"manufacturerSpecific"`
	DisableDefaultResponse bool `yaml:"disable_default_response" json:"disableDefaultResponse"`
}

var DefaultProtocolConfig = ProtocolConfig{
	ManufacturerSpecific:   false,
	DisableDefaultResponse: false,
}

type Command struct {
	Cluster   string
	Command   string
	Class     CommandClass
	Arguments Arguments
	// converter preference, overridden by an endpoint name from the topic
	Endpoint Endpoint
}

type Argument struct {
	Name  string
	Value interface{}
}

// Arguments is an ordered name -> value list.
type Arguments []Argument

func (a Arguments) Get(name string) (interface{}, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}

	return nil, false
}

func (a Arguments) Set(name string, value interface{}) Arguments {
	for i := range a {
		if a[i].Name == name {
			a[i].Value = value
			return a
		}
	}

	return append(a, Argument{Name: name, Value: value})
}

func (a Arguments) Map() map[string]interface{} {
	ret := make(map[string]interface{}, len(a))
	for _, arg := range a {
		ret[arg.Name] = arg.Value
	}

	return ret
}
