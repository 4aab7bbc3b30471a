package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
mqtt:
  address: localhost
  base_topic: zigbee2mqtt/at/my/home
  endpoint_names: [left, right]
serial:
  port_name: /dev/ttyUSB0
permit_join: true
log_level: debug
devices:
  "0x00124b000724ae04":
    friendly_name: kitchen/light
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "zigbee2mqtt/at/my/home", cfg.MqttConfiguration.BaseTopic)
	assert.Equal(t, uint16(DefaultMqttPort), cfg.MqttConfiguration.Port)
	assert.Equal(t, "zigbee2mqtt/at/my/home", cfg.MqttConfiguration.ClientID)
	assert.Equal(t, []string{"left", "right"}, cfg.MqttConfiguration.EndpointNames)
	assert.Equal(t, uint32(DefaultBaudRate), cfg.SerialConfiguration.BaudRate)
	assert.Equal(t, uint16(DefaultPANID), cfg.ZNetworkConfiguration.PANID)
	assert.Equal(t, uint8(DefaultChannel), cfg.ZNetworkConfiguration.Channel)
	assert.Equal(t, DefaultNetworkKey, cfg.ZNetworkConfiguration.NetworkKey)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.True(t, cfg.PermitJoin)
	assert.Equal(t, "kitchen/light", cfg.Devices["0x00124b000724ae04"].FriendlyName)
}

func TestParseEmptyUsesDefaultBaseTopic(t *testing.T) {
	cfg, err := Parse([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseTopic, cfg.MqttConfiguration.BaseTopic)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"trailing slash":   "mqtt:\n  base_topic: zigbee2mqtt/\n",
		"wildcard":         "mqtt:\n  base_topic: zigbee2mqtt/#\n",
		"endpoint slash":   "mqtt:\n  endpoint_names: [a/b]\n",
		"short key":        "network:\n  network_key: [1, 2, 3]\n",
		"bad channel":      "network:\n  channel: 30\n",
		"empty name":       "devices:\n  \"0x01\":\n    friendly_name: \"\"\n",
		"unknown field":    "mqtt:\n  topic: zigbee2mqtt\n",
		"not yaml mapping": "- a\n- b\n",
	}

	for name, data := range cases {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestInitAndUpdate(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(testConfig), 0644))

	cs, err := Init(filename)
	require.NoError(t, err)
	assert.Equal(t, "zigbee2mqtt/at/my/home", cs.GetBaseTopic())

	cfg := cs.GetConfiguration()
	cfg.MqttConfiguration.BaseTopic = "home"
	require.NoError(t, cs.Update(cfg))
	assert.Equal(t, "home", cs.GetBaseTopic())

	reloaded, err := Init(filename)
	require.NoError(t, err)
	assert.Equal(t, "home", reloaded.GetBaseTopic())
}

func TestUpdateRejectsInvalidAndKeepsPrevious(t *testing.T) {
	cs, err := New(Configuration{})
	require.NoError(t, err)

	cfg := cs.GetConfiguration()
	cfg.MqttConfiguration.BaseTopic = "bad/+/topic"
	assert.ErrorIs(t, cs.Update(cfg), ErrInvalidConfiguration)
	assert.Equal(t, DefaultBaseTopic, cs.GetBaseTopic())
}

func TestInitMissingFile(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNetworkKey(t *testing.T) {
	cfg, err := Parse([]byte(``))
	require.NoError(t, err)

	key := cfg.ZNetworkConfiguration.Key()
	assert.Equal(t, byte(0x01), key[0])
	assert.Equal(t, byte(0x0D), key[15])
}

func TestInitShippedConfiguration(t *testing.T) {
	cs, err := Init("../../configuration.yaml")
	require.NoError(t, err)

	cfg := cs.GetConfiguration()
	assert.Equal(t, "zigbee2mqtt", cs.GetBaseTopic())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Len(t, cfg.ZNetworkConfiguration.NetworkKey, 16)
	assert.Equal(t, "living/room/blind", cfg.Devices["0x00124b000724ae04"].FriendlyName)
}
