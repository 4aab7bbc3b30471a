package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

const (
	DefaultBaseTopic = "zigbee2mqtt"
	DefaultMqttPort  = 1883
	DefaultBaudRate  = 115200
	DefaultDBPath    = "./data"
	DefaultPANID     = 9945
	DefaultChannel   = 15
)

var (
	DefaultExtendedPANID = btoi64([]byte{125, 221, 221, 125, 221, 221, 125, 221})
	DefaultNetworkKey    = []byte{0x01, 0x03, 0x05, 0x07, 0x09, 0x0B, 0x0D, 0x0F, 0x00, 0x02, 0x04, 0x06, 0x08, 0x0A, 0x0C, 0x0D}
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

type configurationService struct {
	filename      string
	configuration Configuration
	mu            sync.RWMutex
}

// Init loads the yaml file, applies defaults and validates the result.
func Init(filename string) (ConfigurationService, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %v: %w", filename, err)
	}

	return &configurationService{
		filename:      filename,
		configuration: cfg,
	}, nil
}

// New wraps an in-memory configuration; Update does not persist anything.
func New(cfg Configuration) (ConfigurationService, error) {
	setDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &configurationService{
		configuration: cfg,
	}, nil
}

func Parse(data []byte) (Configuration, error) {
	var cfg Configuration
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Configuration{}, err
	}

	setDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Configuration{}, err
	}

	return cfg, nil
}

func (cs *configurationService) GetConfiguration() Configuration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.configuration
}

func (cs *configurationService) GetBaseTopic() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.configuration.MqttConfiguration.BaseTopic
}

func (cs *configurationService) Update(updatedConfig Configuration) error {
	setDefaults(&updatedConfig)
	if err := validate(updatedConfig); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.filename != "" {
		data, err := yaml.Marshal(updatedConfig)
		if err != nil {
			return err
		}

		if err := os.WriteFile(cs.filename, data, 0644); err != nil {
			return err
		}
	}

	cs.configuration = updatedConfig

	return nil
}

func setDefaults(cfg *Configuration) {
	if cfg.MqttConfiguration.BaseTopic == "" {
		cfg.MqttConfiguration.BaseTopic = DefaultBaseTopic
	}
	if cfg.MqttConfiguration.Port == 0 {
		cfg.MqttConfiguration.Port = DefaultMqttPort
	}
	if cfg.MqttConfiguration.ClientID == "" {
		cfg.MqttConfiguration.ClientID = cfg.MqttConfiguration.BaseTopic
	}
	if cfg.SerialConfiguration.BaudRate == 0 {
		cfg.SerialConfiguration.BaudRate = DefaultBaudRate
	}
	if cfg.ZNetworkConfiguration.PANID == 0 {
		cfg.ZNetworkConfiguration.PANID = DefaultPANID
	}
	if cfg.ZNetworkConfiguration.ExtendedPANID == 0 {
		cfg.ZNetworkConfiguration.ExtendedPANID = DefaultExtendedPANID
	}
	if len(cfg.ZNetworkConfiguration.NetworkKey) == 0 {
		cfg.ZNetworkConfiguration.NetworkKey = append([]byte(nil), DefaultNetworkKey...)
	}
	if cfg.ZNetworkConfiguration.Channel == 0 {
		cfg.ZNetworkConfiguration.Channel = DefaultChannel
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Metrics.Address != "" && cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg Configuration) error {
	base := cfg.MqttConfiguration.BaseTopic
	if strings.HasPrefix(base, "/") || strings.HasSuffix(base, "/") {
		return fmt.Errorf("%w: base_topic '%v' must not start or end with '/'", ErrInvalidConfiguration, base)
	}
	if strings.ContainsAny(base, "#+") {
		return fmt.Errorf("%w: base_topic '%v' must not contain wildcards", ErrInvalidConfiguration, base)
	}

	for _, name := range cfg.MqttConfiguration.EndpointNames {
		if name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("%w: endpoint name '%v' must be a single topic segment", ErrInvalidConfiguration, name)
		}
	}

	if len(cfg.ZNetworkConfiguration.NetworkKey) != 16 {
		return fmt.Errorf("%w: network_key must be 16 bytes, got %d", ErrInvalidConfiguration, len(cfg.ZNetworkConfiguration.NetworkKey))
	}
	if ch := cfg.ZNetworkConfiguration.Channel; ch < 11 || ch > 26 {
		return fmt.Errorf("%w: channel %d is outside 11..26", ErrInvalidConfiguration, ch)
	}

	for ieee, dev := range cfg.Devices {
		if dev.FriendlyName == "" {
			return fmt.Errorf("%w: device %v has an empty friendly_name", ErrInvalidConfiguration, ieee)
		}
	}

	return nil
}

// Key returns the network key in the fixed size form the coordinator expects.
func (z ZNetworkConfiguration) Key() [16]byte {
	var ret [16]byte
	copy(ret[:], z.NetworkKey)
	return ret
}

func btoi64(val []byte) uint64 {
	r := uint64(0)
	for i := uint64(0); i < 8; i++ {
		r |= uint64(val[i]) << (8 * i)
	}
	return r
}
