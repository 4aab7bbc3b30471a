package configuration

type ZNetworkConfiguration struct {
	PANID         uint16 `yaml:"pan_id"`
	ExtendedPANID uint64 `yaml:"extended_pan_id"`
	NetworkKey    []byte `yaml:"network_key,flow"`
	Channel       uint8  `yaml:"channel"`
}

type MqttConfiguration struct {
	Address   string `yaml:"address"`
	Port      uint16 `yaml:"port"`
	BaseTopic string `yaml:"base_topic"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	// topic segments accepted as endpoint names, e.g. <base>/<device>/left/set
	EndpointNames []string `yaml:"endpoint_names,flow"`
}

type SerialConfiguration struct {
	PortName string `yaml:"port_name"`
	BaudRate uint32 `yaml:"baud_rate"`
}

type DeviceConfiguration struct {
	FriendlyName string `yaml:"friendly_name"`
}

type MetricsConfiguration struct {
	// empty disables the metrics endpoint
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

type Configuration struct {
	ZNetworkConfiguration ZNetworkConfiguration `yaml:"network"`
	MqttConfiguration     MqttConfiguration     `yaml:"mqtt"`
	SerialConfiguration   SerialConfiguration   `yaml:"serial"`
	PermitJoin            bool                  `yaml:"permit_join"`
	LogLevel              string                `yaml:"log_level"` // info, warn, error, debug
	// keyed by IEEE address, e.g. "0x00124b000724ae04"
	Devices            map[string]DeviceConfiguration `yaml:"devices"`
	DefinitionsFile    string                         `yaml:"definitions_file"`
	ZCLDefinitionsFile string                         `yaml:"zcl_definitions_file"`
	DBPath             string                         `yaml:"db_path"`
	Metrics            MetricsConfiguration           `yaml:"metrics"`
}
