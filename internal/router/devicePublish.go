package router

import (
	"context"
	"errors"
	"time"

	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/dispatch"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/metric"
	"github.com/supby/zbridge/internal/topic"
	"github.com/supby/zbridge/internal/types"
)

const defaultPublishTimeout = 10 * time.Second

type DevicePublishOptions struct {
	Parser     *topic.Parser
	Lookup     DeviceLookup
	Registry   DefinitionRegistry
	Dispatcher *dispatch.Dispatcher
	Network    NetworkPublisher
	Logger     logger.Logger
	// optional
	Metrics *metric.Metrics
	// bounds the device lookup and each command on its own, defaultPublishTimeout when zero
	PublishTimeout time.Duration
}

// DevicePublish turns <base>/<device>[/<endpoint>]/<set|get> messages into zigbee
// commands. It keeps no state between messages.
type DevicePublish struct {
	opts DevicePublishOptions
}

func NewDevicePublish(opts DevicePublishOptions) (*DevicePublish, error) {
	switch {
	case opts.Parser == nil:
		return nil, errors.New("device publish: parser is required")
	case opts.Lookup == nil:
		return nil, errors.New("device publish: device lookup is required")
	case opts.Registry == nil:
		return nil, errors.New("device publish: definition registry is required")
	case opts.Dispatcher == nil:
		return nil, errors.New("device publish: dispatcher is required")
	case opts.Network == nil:
		return nil, errors.New("device publish: network publisher is required")
	case opts.Logger == nil:
		return nil, errors.New("device publish: logger is required")
	}

	if opts.PublishTimeout == 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	return &DevicePublish{opts: opts}, nil
}

func (d *DevicePublish) OnMQTTMessage(topic string, payload []byte) {
	d.OnMQTTMessageContext(context.Background(), topic, payload)
}

// OnMQTTMessageContext handles one message. Topics that are not device set/get topics
// are ignored without a report; every other failure is reported and ends the message.
func (d *DevicePublish) OnMQTTMessageContext(ctx context.Context, topic string, payload []byte) {
	parsed, ok := d.opts.Parser.Parse(topic)
	if !ok {
		return
	}

	d.opts.Metrics.MessageReceived()

	message, err := types.DecodePayload(payload)
	if err != nil {
		d.opts.Logger.Error("Invalid JSON '%s' on '%v', skipping: %v", payload, topic, err)
		d.opts.Metrics.MessageDropped(metric.DropMalformedPayload)
		return
	}

	device, ok := d.findDevice(ctx, parsed.DeviceID)
	if !ok {
		d.opts.Logger.Error("Device '%v' is unknown", parsed.DeviceID)
		d.opts.Metrics.MessageDropped(metric.DropUnknownDevice)
		return
	}

	def, ok := d.opts.Registry.DefinitionFor(device.ModelID)
	if !ok {
		d.opts.Logger.Warn("Device '%v' with model '%v' is not supported", parsed.DeviceID, device.ModelID)
		d.opts.Metrics.MessageDropped(metric.DropUnsupportedModel)
		return
	}

	config := def.ProtocolConfig()

	results := d.opts.Dispatcher.Dispatch(def, parsed.Type, parsed.Endpoint, message)
	if len(results) == 0 {
		d.opts.Metrics.MessageDropped(metric.DropNoCommand)
		return
	}

	for _, res := range results {
		d.publish(ctx, device, config, res)
	}
}

func (d *DevicePublish) findDevice(ctx context.Context, id string) (db.Device, bool) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.PublishTimeout)
	defer cancel()

	return d.opts.Lookup.FindDevice(ctx, id)
}

func (d *DevicePublish) publish(ctx context.Context, device db.Device, config types.ProtocolConfig, res dispatch.Result) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.PublishTimeout)
	defer cancel()

	req := PublishRequest{
		IEEEAddress: device.IEEEAddress,
		Cluster:     res.Command.Cluster,
		Command:     res.Command.Command,
		Class:       res.Command.Class,
		Arguments:   res.Command.Arguments,
		Config:      config,
		Endpoint:    res.Endpoint,
	}

	err := d.opts.Network.Publish(ctx, req)
	d.opts.Metrics.CommandPublished(req.Cluster, err)

	if err != nil {
		d.opts.Logger.Error("Publish '%v' '%v' to '%v' (%v) failed: %v",
			req.Class, req.Command, device.Name(), req.Endpoint, err)
		return
	}

	d.opts.Logger.Debug("Published '%v' '%v' %v to '%v' (%v)",
		req.Cluster, req.Command, req.Arguments.Map(), device.Name(), req.Endpoint)
}
