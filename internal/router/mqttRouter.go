package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supby/zbridge/internal/configuration"
	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/mqtt"
	"github.com/supby/zbridge/internal/types"
)

const (
	permitJoinTopic = "bridge/config/permit_join"
	renameTopic     = "bridge/config/rename"
)

type permitJoiner interface {
	SetPermitJoin(ctx context.Context, permit bool) error
}

type deviceDirectory interface {
	DeviceLookup
	DeviceName(ctx context.Context, ieeeAddress uint64) string
}

type renameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type mqttRouter struct {
	client        mqtt.MqttClient
	configuration configuration.ConfigurationService
	devicePublish *DevicePublish
	network       permitJoiner
	database      db.DeviceDB
	names         deviceDirectory
	registry      DefinitionRegistry
	logger        logger.Logger
}

func NewMQTTRouter(
	client mqtt.MqttClient,
	cfg configuration.ConfigurationService,
	devicePublish *DevicePublish,
	network permitJoiner,
	database db.DeviceDB,
	names deviceDirectory,
	registry DefinitionRegistry,
	log logger.Logger) MQTTRouter {

	return &mqttRouter{
		client:        client,
		configuration: cfg,
		devicePublish: devicePublish,
		network:       network,
		database:      database,
		names:         names,
		registry:      registry,
		logger:        log,
	}
}

func (mr *mqttRouter) Start() {
	mr.client.Subscribe(mr.onMessage)
}

func (mr *mqttRouter) Stop() {
	mr.client.UnSubscribe()
}

func (mr *mqttRouter) onMessage(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	base := mr.configuration.GetBaseTopic() + "/"

	switch topic {
	case base + mqtt.BridgeGetDevicesTopic:
		mr.PublishBridgeDevices(ctx)
	case base + permitJoinTopic:
		mr.setPermitJoin(ctx, payload)
	case base + renameTopic:
		mr.renameDevice(ctx, payload)
	default:
		mr.devicePublish.OnMQTTMessageContext(ctx, topic, payload)
	}
}

func (mr *mqttRouter) setPermitJoin(ctx context.Context, payload []byte) {
	permit, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		mr.logger.Error("Invalid permit_join value '%s'", payload)
		return
	}

	if err := mr.network.SetPermitJoin(ctx, permit); err != nil {
		mr.logger.Error("Failed to set permit join to %v: %v", permit, err)
		return
	}

	mr.logger.Info("Permit join is %v", permit)
}

// renameDevice stores a new friendly name for a device. Devices listed in the
// configuration devices section are renamed there as well.
func (mr *mqttRouter) renameDevice(ctx context.Context, payload []byte) {
	var req renameRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Old == "" {
		mr.logger.Error("Invalid rename request '%s'", payload)
		return
	}

	if err := mr.validateName(ctx, req.New); err != nil {
		mr.logger.Error("Failed to rename '%v': %v", req.Old, err)
		return
	}

	device, ok := mr.names.FindDevice(ctx, req.Old)
	if !ok {
		mr.logger.Error("Device '%v' is unknown", req.Old)
		return
	}

	err := mr.database.UpdateDevice(ctx, device.IEEEAddress, func(d *db.Device) {
		d.FriendlyName = req.New
	})
	if err != nil {
		mr.logger.Error("Failed to rename '%v': %v", req.Old, err)
		return
	}

	if err := mr.renameConfigured(device.IEEEAddress, req.New); err != nil {
		mr.logger.Error("Failed to rename '%v' in configuration: %v", req.Old, err)
		return
	}

	mr.logger.Info("Device '%v' renamed to '%v'", req.Old, req.New)
	mr.PublishBridgeDevices(ctx)
}

// validateName rejects names that would not parse back from a device topic.
func (mr *mqttRouter) validateName(ctx context.Context, name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.ContainsAny(name, "#+") {
		return fmt.Errorf("%w: '%v'", ErrInvalidName, name)
	}
	if _, isAddress := db.ParseIEEEAddress(name); isAddress {
		return fmt.Errorf("%w: '%v' is an IEEE address", ErrInvalidName, name)
	}

	segments := strings.Split(name, "/")
	if segments[0] == "bridge" {
		return fmt.Errorf("%w: '%v' is a bridge topic", ErrInvalidName, name)
	}
	last := segments[len(segments)-1]
	if last == string(types.MessageTypeSet) || last == string(types.MessageTypeGet) {
		return fmt.Errorf("%w: '%v' ends with '%v'", ErrInvalidName, name, last)
	}
	if len(segments) > 1 && mr.devicePublish.opts.Parser.IsEndpointName(last) {
		return fmt.Errorf("%w: '%v' ends with endpoint name '%v'", ErrInvalidName, name, last)
	}

	if _, taken := mr.names.FindDevice(ctx, name); taken {
		return fmt.Errorf("%w: '%v' is already in use", ErrInvalidName, name)
	}

	return nil
}

func (mr *mqttRouter) renameConfigured(ieeeAddress uint64, name string) error {
	cfg := mr.configuration.GetConfiguration()

	for key, dc := range cfg.Devices {
		if v, ok := db.ParseIEEEAddress(key); !ok || v != ieeeAddress {
			continue
		}

		devices := make(map[string]configuration.DeviceConfiguration, len(cfg.Devices))
		for k, v := range cfg.Devices {
			devices[k] = v
		}
		dc.FriendlyName = name
		devices[key] = dc
		cfg.Devices = devices

		return mr.configuration.Update(cfg)
	}

	return nil
}

// PublishDeviceMessage publishes the attributes of a report as one JSON object on
// <base>/<device name>.
func (mr *mqttRouter) PublishDeviceMessage(msg mqtt.DeviceMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state := make(map[string]interface{}, len(msg.Attributes)+1)
	for k, v := range msg.Attributes {
		state[k] = v
	}
	state["linkquality"] = msg.LinkQuality

	data, err := json.Marshal(state)
	if err != nil {
		mr.logger.Error("Failed to marshal message of 0x%016x: %v", msg.IEEEAddress, err)
		return
	}

	mr.client.Publish(mr.names.DeviceName(ctx, msg.IEEEAddress), data, false)
}

func (mr *mqttRouter) PublishBridgeDevices(ctx context.Context) {
	devices, err := mr.database.GetDevices(ctx)
	if err != nil {
		mr.logger.Error("Failed to read devices: %v", err)
		return
	}

	ret := make([]mqtt.BridgeDevice, 0, len(devices))
	for _, d := range devices {
		_, supported := mr.registry.DefinitionFor(d.ModelID)

		ret = append(ret, mqtt.BridgeDevice{
			IEEEAddress:      db.FormatIEEEAddress(d.IEEEAddress),
			FriendlyName:     mr.names.DeviceName(ctx, d.IEEEAddress),
			NetworkAddress:   d.NetworkAddress,
			ModelID:          d.ModelID,
			ManufacturerName: d.ManufacturerName,
			Supported:        supported,
			Endpoints:        d.Endpoints,
			LastSeen:         d.LastReceived,
		})
	}

	data, err := json.Marshal(ret)
	if err != nil {
		mr.logger.Error("Failed to marshal devices: %v", err)
		return
	}

	mr.client.Publish(mqtt.BridgeDevicesTopic, data, true)
}
