package router

import (
	"context"

	"github.com/shimmeringbee/zigbee"

	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/mqtt"
	"github.com/supby/zbridge/internal/types"
)

type DeviceLookup interface {
	FindDevice(ctx context.Context, identifier string) (db.Device, bool)
}

type DefinitionRegistry interface {
	DefinitionFor(modelID string) (*definitions.Definition, bool)
}

// PublishRequest is one ZCL command addressed to a device.
type PublishRequest struct {
	IEEEAddress uint64
	Cluster     string
	Command     string
	Class       types.CommandClass
	Arguments   types.Arguments
	Config      types.ProtocolConfig
	Endpoint    types.Endpoint
}

type NetworkPublisher interface {
	Publish(ctx context.Context, req PublishRequest) error
}

type MQTTRouter interface {
	PublishDeviceMessage(msg mqtt.DeviceMessage)
	PublishBridgeDevices(ctx context.Context)
	Start()
	Stop()
}

type ZigbeeRouter interface {
	NetworkPublisher
	SubscribeOnDeviceMessage(callback func(devMsg mqtt.DeviceMessage))
	SubscribeOnDeviceJoin(cb func(e zigbee.NodeJoinEvent))
	SubscribeOnDeviceLeave(cb func(e zigbee.NodeLeaveEvent))
	SetPermitJoin(ctx context.Context, permit bool) error
	StartAsync(ctx context.Context) error
	Stop()
}
