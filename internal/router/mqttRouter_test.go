package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supby/zbridge/internal/configuration"
	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/dispatch"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/mqtt"
	"github.com/supby/zbridge/internal/topic"
)

type published struct {
	subTopic string
	data     []byte
	retain   bool
}

type fakeClient struct {
	mu        sync.Mutex
	callback  func(topic string, message []byte)
	published []published
}

func (f *fakeClient) Dispose() {}

func (f *fakeClient) Publish(subTopic string, data []byte, retain bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, published{subTopic: subTopic, data: data, retain: retain})
}

func (f *fakeClient) Subscribe(callback func(topic string, message []byte)) {
	f.callback = callback
}

func (f *fakeClient) UnSubscribe() {
	f.callback = nil
}

type fakePermitJoiner struct {
	permit *bool
}

func (f *fakePermitJoiner) SetPermitJoin(ctx context.Context, permit bool) error {
	f.permit = &permit
	return nil
}

type mqttFixture struct {
	router  *mqttRouter
	client  *fakeClient
	network *fakeNetwork
	joiner  *fakePermitJoiner
	db      db.DeviceDB
}

func newMQTTFixture(t *testing.T) *mqttFixture {
	cfg, err := configuration.New(configuration.Configuration{
		Devices: map[string]configuration.DeviceConfiguration{
			"0x0000000000000001": {FriendlyName: "kitchen/bulb"},
		},
	})
	require.NoError(t, err)

	registry, err := definitions.Parse([]byte(testCatalogue))
	require.NoError(t, err)

	database, err := db.NewDeviceDB(t.TempDir(), logger.NewLogger(io.Discard, "[db]", logger.LogLevelInfo))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(context.Background()) })

	ctx := context.Background()
	require.NoError(t, database.SaveDevice(ctx, db.Device{IEEEAddress: 0x01, ModelID: "TRADFRI bulb E27 CWS opal 600lm", Endpoints: []uint8{1}}))
	require.NoError(t, database.SaveDevice(ctx, db.Device{IEEEAddress: 0x02, ModelID: "unknown.model"}))

	log := logger.NewLogger(&bytes.Buffer{}, "[mqtt router]", logger.LogLevelDebug)
	lookup := db.NewDeviceLookup(database, cfg)
	network := &fakeNetwork{errors: map[string]error{}}

	dp, err := NewDevicePublish(DevicePublishOptions{
		Parser:     topic.NewParser(cfg, cfg.GetConfiguration().MqttConfiguration.EndpointNames),
		Lookup:     lookup,
		Registry:   registry,
		Dispatcher: dispatch.New(log),
		Network:    network,
		Logger:     log,
	})
	require.NoError(t, err)

	client := &fakeClient{}
	joiner := &fakePermitJoiner{}
	mr := NewMQTTRouter(client, cfg, dp, joiner, database, lookup, registry, log).(*mqttRouter)
	mr.Start()

	return &mqttFixture{router: mr, client: client, network: network, joiner: joiner, db: database}
}

func TestMQTTRouterDeviceMessage(t *testing.T) {
	f := newMQTTFixture(t)
	require.NotNil(t, f.client.callback)

	f.client.callback("zigbee2mqtt/kitchen/bulb/set", []byte(`{"state":"ON"}`))

	require.Len(t, f.network.requests, 1)
	assert.Equal(t, uint64(0x01), f.network.requests[0].IEEEAddress)
	assert.Equal(t, "on", f.network.requests[0].Command)
}

func TestMQTTRouterBridgeDevices(t *testing.T) {
	f := newMQTTFixture(t)

	f.client.callback("zigbee2mqtt/bridge/get_devices", nil)

	require.Len(t, f.client.published, 1)
	assert.Equal(t, mqtt.BridgeDevicesTopic, f.client.published[0].subTopic)
	assert.True(t, f.client.published[0].retain)

	var devices []mqtt.BridgeDevice
	require.NoError(t, json.Unmarshal(f.client.published[0].data, &devices))
	require.Len(t, devices, 2)
	assert.Equal(t, "kitchen/bulb", devices[0].FriendlyName)
	assert.Equal(t, "0x0000000000000001", devices[0].IEEEAddress)
	assert.True(t, devices[0].Supported)
	assert.Equal(t, "0x0000000000000002", devices[1].FriendlyName)
	assert.False(t, devices[1].Supported)

	assert.Empty(t, f.network.requests)
}

func TestMQTTRouterPermitJoin(t *testing.T) {
	f := newMQTTFixture(t)

	f.client.callback("zigbee2mqtt/bridge/config/permit_join", []byte("maybe"))
	assert.Nil(t, f.joiner.permit)

	f.client.callback("zigbee2mqtt/bridge/config/permit_join", []byte("true"))
	require.NotNil(t, f.joiner.permit)
	assert.True(t, *f.joiner.permit)
}

func TestMQTTRouterPublishDeviceMessage(t *testing.T) {
	f := newMQTTFixture(t)

	f.router.PublishDeviceMessage(mqtt.DeviceMessage{
		IEEEAddress: 0x01,
		LinkQuality: 87,
		ClusterName: "genOnOff",
		Attributes:  map[string]interface{}{"onOff": true},
	})

	require.Len(t, f.client.published, 1)
	assert.Equal(t, "kitchen/bulb", f.client.published[0].subTopic)
	assert.JSONEq(t, `{"onOff":true,"linkquality":87}`, string(f.client.published[0].data))

	// the echo of a state message is not a device command
	f.client.callback("zigbee2mqtt/kitchen/bulb", f.client.published[0].data)
	assert.Empty(t, f.network.requests)
}

func TestMQTTRouterStop(t *testing.T) {
	f := newMQTTFixture(t)

	f.router.Stop()
	assert.Nil(t, f.client.callback)
}

func TestMQTTRouterRenameStoredDevice(t *testing.T) {
	f := newMQTTFixture(t)
	ctx := context.Background()

	f.client.callback("zigbee2mqtt/bridge/config/rename", []byte(`{"old":"0x0000000000000002","new":"garage/door"}`))

	device, err := f.db.GetDevice(ctx, 0x02)
	require.NoError(t, err)
	assert.Equal(t, "garage/door", device.FriendlyName)

	found, ok := f.router.names.FindDevice(ctx, "garage/door")
	require.True(t, ok)
	assert.Equal(t, uint64(0x02), found.IEEEAddress)

	require.Len(t, f.client.published, 1)
	assert.Equal(t, mqtt.BridgeDevicesTopic, f.client.published[0].subTopic)
	assert.Contains(t, string(f.client.published[0].data), `"friendly_name":"garage/door"`)
}

func TestMQTTRouterRenameConfiguredDevice(t *testing.T) {
	f := newMQTTFixture(t)

	f.client.callback("zigbee2mqtt/bridge/config/rename", []byte(`{"old":"kitchen/bulb","new":"kitchen/lamp"}`))

	cfg := f.router.configuration.GetConfiguration()
	assert.Equal(t, "kitchen/lamp", cfg.Devices["0x0000000000000001"].FriendlyName)

	f.client.callback("zigbee2mqtt/kitchen/bulb/set", []byte(`{"state":"ON"}`))
	assert.Empty(t, f.network.requests)

	f.client.callback("zigbee2mqtt/kitchen/lamp/set", []byte(`{"state":"ON"}`))
	require.Len(t, f.network.requests, 1)
	assert.Equal(t, uint64(0x01), f.network.requests[0].IEEEAddress)
}

func TestMQTTRouterRenameRejected(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `garage`},
		{"unknown device", `{"old":"attic","new":"loft"}`},
		{"empty name", `{"old":"0x0000000000000002","new":""}`},
		{"wildcard", `{"old":"0x0000000000000002","new":"garage/#"}`},
		{"ieee address", `{"old":"0x0000000000000002","new":"0x0000000000000003"}`},
		{"message type suffix", `{"old":"0x0000000000000002","new":"garage/set"}`},
		{"endpoint suffix", `{"old":"0x0000000000000002","new":"garage/left"}`},
		{"bridge topic", `{"old":"0x0000000000000002","new":"bridge/devices"}`},
		{"name in use", `{"old":"0x0000000000000002","new":"kitchen/bulb"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newMQTTFixture(t)

			f.client.callback("zigbee2mqtt/bridge/config/rename", []byte(c.payload))

			device, err := f.db.GetDevice(context.Background(), 0x02)
			require.NoError(t, err)
			assert.Empty(t, device.FriendlyName)
			assert.Empty(t, f.client.published)
		})
	}
}
