package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zcl/commands/global"
	"github.com/shimmeringbee/zcl/commands/local/color_control"
	"github.com/shimmeringbee/zcl/commands/local/ias_zone"
	"github.com/shimmeringbee/zcl/commands/local/level"
	"github.com/shimmeringbee/zcl/commands/local/onoff"
	"github.com/shimmeringbee/zigbee"
	"github.com/shimmeringbee/zstack"
	"go.bug.st/serial.v1"

	"github.com/supby/zbridge/internal/configuration"
	"github.com/supby/zbridge/internal/db"
	"github.com/supby/zbridge/internal/definitions"
	"github.com/supby/zbridge/internal/logger"
	"github.com/supby/zbridge/internal/metric"
	"github.com/supby/zbridge/internal/mqtt"
	"github.com/supby/zbridge/internal/types"
	"github.com/supby/zbridge/internal/utils"
	"github.com/supby/zbridge/internal/zcldef"
)

const (
	adapterEndpoint = zigbee.Endpoint(0x01)
	defaultEndpoint = uint8(0x01)

	// ZCL frame control bits the zcl marshaller leaves cleared
	frameControlManufacturerSpecific   = 0x04
	frameControlDisableDefaultResponse = 0x10

	clusterBasic          = "genBasic"
	attributeModelID      = "modelId"
	attributeManufacturer = "manufacturerName"
)

type sender interface {
	SendApplicationMessageToNode(ctx context.Context, destinationAddress zigbee.IEEEAddress, message zigbee.ApplicationMessage, requireAck bool) error
}

type zigbeeRouter struct {
	zstack             *zstack.ZStack
	port               serial.Port
	sender             sender
	configuration      configuration.ConfigurationService
	zclCommandRegistry *zcl.CommandRegistry
	zclDefService      zcldef.ZCLDefService
	database           db.DeviceDB
	metrics            *metric.Metrics
	transactionSeq     uint32
	onDeviceMessage    func(devMsg mqtt.DeviceMessage)
	onDeviceJoin       func(e zigbee.NodeJoinEvent)
	onDeviceLeave      func(e zigbee.NodeLeaveEvent)
	wg                 sync.WaitGroup
	logger             logger.Logger
}

func NewZigbeeRouter(
	zclDefService zcldef.ZCLDefService,
	database db.DeviceDB,
	cfg configuration.ConfigurationService,
	metrics *metric.Metrics,
	log logger.Logger) ZigbeeRouter {

	return newZigbeeRouter(zclDefService, database, cfg, metrics, log)
}

func newZigbeeRouter(
	zclDefService zcldef.ZCLDefService,
	database db.DeviceDB,
	cfg configuration.ConfigurationService,
	metrics *metric.Metrics,
	log logger.Logger) *zigbeeRouter {

	zclCommandRegistry := zcl.NewCommandRegistry()
	global.Register(zclCommandRegistry)
	onoff.Register(zclCommandRegistry)
	level.Register(zclCommandRegistry)
	color_control.Register(zclCommandRegistry)
	ias_zone.Register(zclCommandRegistry)
	registerWindowCovering(zclCommandRegistry)

	return &zigbeeRouter{
		configuration:      cfg,
		zclCommandRegistry: zclCommandRegistry,
		zclDefService:      zclDefService,
		database:           database,
		metrics:            metrics,
		logger:             log,
	}
}

func (mh *zigbeeRouter) SubscribeOnDeviceMessage(callback func(devMsg mqtt.DeviceMessage)) {
	mh.onDeviceMessage = callback
}

func (mh *zigbeeRouter) SubscribeOnDeviceJoin(cb func(e zigbee.NodeJoinEvent)) {
	mh.onDeviceJoin = cb
}

func (mh *zigbeeRouter) SubscribeOnDeviceLeave(cb func(e zigbee.NodeLeaveEvent)) {
	mh.onDeviceLeave = cb
}

func (mh *zigbeeRouter) nextTransactionSequence() uint8 {
	return uint8(atomic.AddUint32(&mh.transactionSeq, 1))
}

// Publish marshals one command and sends it to the device. The device default endpoint
// is the first endpoint known for the device.
func (mh *zigbeeRouter) Publish(ctx context.Context, req PublishRequest) error {
	if mh.sender == nil {
		return ErrNotStarted
	}

	clusterDef, ok := mh.zclDefService.GetByName(req.Cluster)
	if !ok {
		return fmt.Errorf("%w: '%v'", ErrUnknownCluster, req.Cluster)
	}

	device, err := mh.database.GetDevice(ctx, req.IEEEAddress)
	if err != nil {
		device = db.Device{IEEEAddress: req.IEEEAddress}
	}

	endpoint, explicit := req.Endpoint.Explicit()
	if !explicit {
		endpoint = defaultEndpoint
		if len(device.Endpoints) > 0 {
			endpoint = device.Endpoints[0]
		}
	}

	// commands are registered without a manufacturer, the code is written into the
	// header after marshalling
	message := zcl.Message{
		Direction:           zcl.ClientToServer,
		TransactionSequence: mh.nextTransactionSequence(),
		Manufacturer:        zigbee.NoManufacturer,
		ClusterID:           zigbee.ClusterID(clusterDef.ID),
		SourceEndpoint:      adapterEndpoint,
		DestinationEndpoint: zigbee.Endpoint(endpoint),
	}

	manufacturer := zigbee.ManufacturerCode(zigbee.NoManufacturer)
	if req.Config.ManufacturerSpecific && device.ManufacturerCode != 0 {
		manufacturer = zigbee.ManufacturerCode(device.ManufacturerCode)
	}

	switch req.Class {
	case types.CommandClassFunctional:
		err = mh.buildLocalCommand(&message, clusterDef, req)
	case types.CommandClassGeneric:
		err = mh.buildGlobalCommand(&message, clusterDef, req)
	default:
		err = fmt.Errorf("unsupported command class '%v'", req.Class)
	}
	if err != nil {
		return err
	}

	appMsg, err := mh.zclCommandRegistry.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal zcl message: %w", err)
	}

	applyFrameControl(&appMsg, manufacturer, req.Config.DisableDefaultResponse)

	err = mh.sender.SendApplicationMessageToNode(ctx, zigbee.IEEEAddress(req.IEEEAddress), appMsg, false)
	if err != nil {
		return fmt.Errorf("send to 0x%016x: %w", req.IEEEAddress, err)
	}

	mh.logger.Debug("Message (ClusterID: %v, Command: %v) is sent to 0x%016x/%d", message.ClusterID, message.CommandIdentifier, req.IEEEAddress, endpoint)

	return nil
}

// applyFrameControl sets the manufacturer specific and disable default response flags
// of a marshalled ZCL frame. A manufacturer code is inserted after the frame control byte.
func applyFrameControl(appMsg *zigbee.ApplicationMessage, manufacturer zigbee.ManufacturerCode, disableDefaultResponse bool) {
	data := appMsg.Data
	if len(data) == 0 {
		return
	}

	if manufacturer != zigbee.NoManufacturer && data[0]&frameControlManufacturerSpecific == 0 {
		withCode := make([]byte, 0, len(data)+2)
		withCode = append(withCode, data[0]|frameControlManufacturerSpecific, byte(manufacturer), byte(manufacturer>>8))
		withCode = append(withCode, data[1:]...)
		data = withCode
	}

	if disableDefaultResponse {
		data[0] |= frameControlDisableDefaultResponse
	}

	appMsg.Data = data
}

func (mh *zigbeeRouter) buildLocalCommand(message *zcl.Message, clusterDef zcldef.ClusterDefinition, req PublishRequest) error {
	cmdDef, ok := clusterDef.CommandByName(req.Command)
	if !ok {
		return fmt.Errorf("%w: '%v' in cluster '%v'", ErrUnknownCommand, req.Command, req.Cluster)
	}

	message.FrameType = zcl.FrameLocal
	message.CommandIdentifier = zcl.CommandIdentifier(cmdDef.ID)

	command, err := mh.zclCommandRegistry.GetLocalCommand(message.ClusterID, zigbee.NoManufacturer, message.Direction, message.CommandIdentifier)
	if err != nil {
		return fmt.Errorf("%w: '%v' in cluster '%v': %v", ErrUnknownCommand, req.Command, req.Cluster, err)
	}

	fields := make(map[string]interface{}, len(req.Arguments))
	for _, arg := range req.Arguments {
		field, ok := cmdDef.Field(arg.Name)
		if !ok {
			mh.logger.Debug("Argument '%v' is not a parameter of '%v', ignoring", arg.Name, req.Command)
			continue
		}
		fields[field] = arg.Value
	}

	if err := utils.SetStructProperties(fields, command); err != nil {
		return fmt.Errorf("command '%v': %w", req.Command, err)
	}

	message.Command = command

	return nil
}

func (mh *zigbeeRouter) buildGlobalCommand(message *zcl.Message, clusterDef zcldef.ClusterDefinition, req PublishRequest) error {
	if req.Command != definitions.CommandRead {
		return fmt.Errorf("%w: foundation command '%v'", ErrUnknownCommand, req.Command)
	}

	value, _ := req.Arguments.Get("attributes")
	names, _ := value.([]string)

	attributeIds := make([]zcl.AttributeID, 0, len(names))
	for _, name := range names {
		attr, ok := clusterDef.AttributeByName(name)
		if !ok {
			return fmt.Errorf("%w: '%v' in cluster '%v'", ErrUnknownAttribute, name, req.Cluster)
		}
		attributeIds = append(attributeIds, zcl.AttributeID(attr.ID))
	}

	message.FrameType = zcl.FrameGlobal
	message.CommandIdentifier = global.ReadAttributesID
	message.Command = &global.ReadAttributes{
		Identifier: attributeIds,
	}

	return nil
}

func (mh *zigbeeRouter) SetPermitJoin(ctx context.Context, permit bool) error {
	if mh.zstack == nil {
		return ErrNotStarted
	}

	if permit {
		if err := mh.zstack.PermitJoin(ctx, true); err != nil {
			return err
		}
	} else if err := mh.zstack.DenyJoin(ctx); err != nil {
		return err
	}

	cfg := mh.configuration.GetConfiguration()
	cfg.PermitJoin = permit

	return mh.configuration.Update(cfg)
}

func nodeToDevice(device *db.Device, znode zigbee.Node) {
	device.NetworkAddress = uint16(znode.NetworkAddress)
	device.LogicalType = uint8(znode.LogicalType)
	device.LQI = znode.LQI
	device.Depth = znode.Depth
	device.LastDiscovered = znode.LastDiscovered
	device.LastReceived = znode.LastReceived
}

func (mh *zigbeeRouter) saveNode(ctx context.Context, znode zigbee.Node) {
	err := mh.database.UpdateDevice(ctx, uint64(znode.IEEEAddress), func(device *db.Device) {
		nodeToDevice(device, znode)
	})
	if err != nil {
		mh.logger.Error("Failed to save node 0x%016x: %v", uint64(znode.IEEEAddress), err)
	}
}

func (mh *zigbeeRouter) processNodeJoin(ctx context.Context, e zigbee.NodeJoinEvent) {
	mh.saveNode(ctx, e.Node)

	if mh.zstack != nil {
		mh.interview(ctx, e.Node.IEEEAddress)
	}

	if mh.onDeviceJoin != nil {
		mh.onDeviceJoin(e)
	}
}

// interview stores what the network knows about a new node and asks its Basic cluster
// for the model id, which selects the device definition once the response arrives.
func (mh *zigbeeRouter) interview(ctx context.Context, ieee zigbee.IEEEAddress) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	descriptor, descErr := mh.zstack.QueryNodeDescription(ctx, ieee)
	if descErr != nil {
		mh.logger.Warn("Failed to get node descriptor of 0x%016x: %v", uint64(ieee), descErr)
	}

	endpoints, err := mh.zstack.QueryNodeEndpoints(ctx, ieee)
	if err != nil {
		mh.logger.Warn("Failed to get endpoints of 0x%016x: %v", uint64(ieee), err)
	}

	err = mh.database.UpdateDevice(ctx, uint64(ieee), func(device *db.Device) {
		if descErr == nil {
			device.ManufacturerCode = uint16(descriptor.ManufacturerCode)
		}
		if len(endpoints) > 0 {
			device.Endpoints = make([]uint8, len(endpoints))
			for i, ep := range endpoints {
				device.Endpoints[i] = uint8(ep)
			}
		}
	})
	if err != nil {
		mh.logger.Error("Failed to save node 0x%016x: %v", uint64(ieee), err)
	}

	err = mh.Publish(ctx, PublishRequest{
		IEEEAddress: uint64(ieee),
		Cluster:     clusterBasic,
		Command:     definitions.CommandRead,
		Class:       types.CommandClassGeneric,
		Arguments:   types.Arguments{{Name: "attributes", Value: []string{attributeManufacturer, attributeModelID}}},
		Config:      types.DefaultProtocolConfig,
		Endpoint:    types.DeviceDefaultEndpoint(),
	})
	if err != nil {
		mh.logger.Warn("Failed to read basic attributes of 0x%016x: %v", uint64(ieee), err)
	}
}

func (mh *zigbeeRouter) processNodeLeave(ctx context.Context, e zigbee.NodeLeaveEvent) {
	if err := mh.database.DeleteDevice(ctx, uint64(e.Node.IEEEAddress)); err != nil {
		mh.logger.Error("Failed to delete node 0x%016x: %v", uint64(e.Node.IEEEAddress), err)
	}

	if mh.onDeviceLeave != nil {
		mh.onDeviceLeave(e)
	}
}

func (mh *zigbeeRouter) processIncomingMessage(ctx context.Context, e zigbee.NodeIncomingMessageEvent) {
	mh.saveNode(ctx, e.Node)

	msg := e.IncomingMessage
	message, err := mh.zclCommandRegistry.Unmarshal(msg.ApplicationMessage)
	if err != nil {
		mh.logger.Warn("Error parse incoming message: %v", err)
		return
	}

	mh.logger.Debug("Incoming command of type (%T) is received. ClusterId=%v, SourceEndpoint=%v",
		message.Command, message.ClusterID, message.SourceEndpoint)

	switch cmd := message.Command.(type) {
	case *global.ReportAttributes:
		values := make(map[uint16]interface{}, len(cmd.Records))
		for _, r := range cmd.Records {
			if r.DataTypeValue == nil {
				continue
			}
			values[uint16(r.Identifier)] = r.DataTypeValue.Value
		}
		mh.processAttributes(ctx, msg, values)
	case *global.ReadAttributesResponse:
		values := make(map[uint16]interface{}, len(cmd.Records))
		for _, r := range cmd.Records {
			// unsupported attributes come back with a status and no value
			if r.Status != 0 || r.DataTypeValue == nil {
				continue
			}
			values[uint16(r.Identifier)] = r.DataTypeValue.Value
		}
		mh.processAttributes(ctx, msg, values)
	case *global.DefaultResponse:
		mh.processDefaultResponse(msg, uint8(cmd.CommandIdentifier), uint8(cmd.Status))
	case *ias_zone.ZoneStatusChangeNotification:
		mh.emitDeviceMessage(mqtt.DeviceMessage{
			IEEEAddress: uint64(msg.SourceAddress.IEEEAddress),
			LinkQuality: msg.LinkQuality,
			ClusterName: mh.zclDefService.GetById(uint16(msg.ApplicationMessage.ClusterID)).Name,
			Endpoint:    uint8(msg.ApplicationMessage.SourceEndpoint),
			Attributes:  map[string]interface{}{"zoneStatusChangeNotification": cmd},
		})
	}
}

func (mh *zigbeeRouter) processAttributes(ctx context.Context, msg zigbee.IncomingMessage, values map[uint16]interface{}) {
	mh.onAttributes(
		ctx,
		uint64(msg.SourceAddress.IEEEAddress),
		msg.LinkQuality,
		uint16(msg.ApplicationMessage.ClusterID),
		uint8(msg.ApplicationMessage.SourceEndpoint),
		values)
}

// onAttributes names reported attribute values, keeps the Basic cluster identity of
// the device up to date and forwards the report.
func (mh *zigbeeRouter) onAttributes(ctx context.Context, ieee uint64, lqi uint8, clusterID uint16, endpoint uint8, values map[uint16]interface{}) {
	clusterDef := mh.zclDefService.GetById(clusterID)

	attributes := make(map[string]interface{}, len(values))
	for id, v := range values {
		name := fmt.Sprintf("attr_%d", id)
		if attrDef, ok := clusterDef.Attributes[id]; ok {
			name = attrDef.Name
		}
		attributes[name] = v
	}

	if clusterDef.Name == clusterBasic {
		mh.updateIdentity(ctx, ieee, attributes)
	}

	mh.emitDeviceMessage(mqtt.DeviceMessage{
		IEEEAddress: ieee,
		LinkQuality: lqi,
		ClusterName: clusterDef.Name,
		Endpoint:    endpoint,
		Attributes:  attributes,
	})
}

func (mh *zigbeeRouter) updateIdentity(ctx context.Context, ieee uint64, attributes map[string]interface{}) {
	modelID, hasModel := attributes[attributeModelID].(string)
	manufacturer, hasManufacturer := attributes[attributeManufacturer].(string)
	if !hasModel && !hasManufacturer {
		return
	}

	err := mh.database.UpdateDevice(ctx, ieee, func(device *db.Device) {
		if hasModel {
			device.ModelID = modelID
		}
		if hasManufacturer {
			device.ManufacturerName = manufacturer
		}
	})
	if err != nil {
		mh.logger.Error("Failed to save identity of 0x%016x: %v", ieee, err)
		return
	}

	mh.logger.Info("Device 0x%016x identified as '%v' by '%v'", ieee, modelID, manufacturer)
}

func (mh *zigbeeRouter) processDefaultResponse(msg zigbee.IncomingMessage, commandID uint8, status uint8) {
	clusterDef := mh.zclDefService.GetById(uint16(msg.ApplicationMessage.ClusterID))

	if status != 0 {
		mh.logger.Warn("Device 0x%016x rejected command %d of cluster '%v' with status 0x%02x",
			uint64(msg.SourceAddress.IEEEAddress), commandID, clusterDef.Name, status)
		return
	}

	mh.logger.Debug("Device 0x%016x accepted command %d of cluster '%v'",
		uint64(msg.SourceAddress.IEEEAddress), commandID, clusterDef.Name)
}

func (mh *zigbeeRouter) emitDeviceMessage(devMsg mqtt.DeviceMessage) {
	if mh.onDeviceMessage != nil {
		mh.onDeviceMessage(devMsg)
	}
}

func (mh *zigbeeRouter) StartAsync(ctx context.Context) error {
	z, err := mh.initZStack(ctx)
	if err != nil {
		return fmt.Errorf("zstack initialization: %w", err)
	}

	mh.zstack = z
	mh.sender = z

	mh.wg.Add(1)
	go mh.startEventLoop(ctx)

	return nil
}

// Stop shuts the coordinator down and waits for the event loop and running event handlers.
func (mh *zigbeeRouter) Stop() {
	if mh.zstack != nil {
		mh.zstack.Stop()
		if err := mh.port.Close(); err != nil {
			mh.logger.Warn("Failed to close serial port: %v", err)
		}
	}

	mh.wg.Wait()
}

func (mh *zigbeeRouter) handleAsync(handler func()) {
	mh.wg.Add(1)
	go func() {
		defer mh.wg.Done()
		handler()
	}()
}

func (mh *zigbeeRouter) initZStack(ctx context.Context) (*zstack.ZStack, error) {
	cfg := mh.configuration.GetConfiguration()

	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	mode := &serial.Mode{
		BaudRate: int(cfg.SerialConfiguration.BaudRate),
	}

	port, err := serial.Open(cfg.SerialConfiguration.PortName, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetRTS(true); err != nil {
		port.Close()
		return nil, err
	}
	mh.port = port

	/* Construct node table, cache of network nodes. */
	dbDevices, err := mh.database.GetDevices(initCtx)
	if err != nil {
		return nil, err
	}
	t := zstack.NewNodeTable()
	znodes := make([]zigbee.Node, len(dbDevices))
	for i, dbNode := range dbDevices {
		znodes[i] = zigbee.Node{
			IEEEAddress:    zigbee.IEEEAddress(dbNode.IEEEAddress),
			NetworkAddress: zigbee.NetworkAddress(dbNode.NetworkAddress),
			LogicalType:    zigbee.LogicalType(dbNode.LogicalType),
			LQI:            dbNode.LQI,
			Depth:          dbNode.Depth,
			LastDiscovered: dbNode.LastDiscovered,
			LastReceived:   dbNode.LastReceived,
		}
	}
	t.Load(znodes)

	z := zstack.New(port, t)

	netCfg := zigbee.NetworkConfiguration{
		PANID:         zigbee.PANID(cfg.ZNetworkConfiguration.PANID),
		ExtendedPANID: zigbee.ExtendedPANID(cfg.ZNetworkConfiguration.ExtendedPANID),
		NetworkKey:    cfg.ZNetworkConfiguration.Key(),
		Channel:       cfg.ZNetworkConfiguration.Channel,
	}

	if err := z.Initialise(initCtx, netCfg); err != nil {
		return nil, err
	}

	if cfg.PermitJoin {
		if err := z.PermitJoin(initCtx, true); err != nil {
			mh.logger.Warn("Error permit join: %v", err)
		}
	} else if err := z.DenyJoin(initCtx); err != nil {
		mh.logger.Warn("Error deny join: %v", err)
	}

	if err := z.RegisterAdapterEndpoint(
		initCtx,
		adapterEndpoint,
		zigbee.ProfileHomeAutomation,
		1,
		1,
		[]zigbee.ClusterID{},
		[]zigbee.ClusterID{}); err != nil {
		return nil, err
	}

	mh.logger.Info("Zigbee network is up on channel %d, %d known devices", cfg.ZNetworkConfiguration.Channel, len(dbDevices))

	return z, nil
}

func (mh *zigbeeRouter) startEventLoop(ctx context.Context) {
	defer mh.wg.Done()

	mh.logger.Debug("Event loop started")
	for {
		event, err := mh.zstack.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			mh.logger.Warn("Error read event: %v", err)
			continue
		}

		switch e := event.(type) {
		case zigbee.NodeJoinEvent:
			mh.logger.Info("Node join: 0x%016x", uint64(e.Node.IEEEAddress))
			mh.metrics.Event("join")
			mh.handleAsync(func() { mh.processNodeJoin(ctx, e) })
		case zigbee.NodeLeaveEvent:
			mh.logger.Info("Node leave: 0x%016x", uint64(e.Node.IEEEAddress))
			mh.metrics.Event("leave")
			mh.handleAsync(func() { mh.processNodeLeave(ctx, e) })
		case zigbee.NodeUpdateEvent:
			mh.logger.Debug("Node update: 0x%016x", uint64(e.Node.IEEEAddress))
			mh.metrics.Event("update")
			mh.handleAsync(func() { mh.saveNode(ctx, e.Node) })
		case zigbee.NodeIncomingMessageEvent:
			mh.logger.Debug("Node message: 0x%016x", uint64(e.Node.IEEEAddress))
			mh.metrics.Event("message")
			mh.handleAsync(func() { mh.processIncomingMessage(ctx, e) })
		}
	}
}
