package mqtt

import "time"

// Bridge topics below the base topic.
const (
	BridgeStateTopic      = "bridge/state"
	BridgeDevicesTopic    = "bridge/devices"
	BridgeGetDevicesTopic = "bridge/get_devices"
)

// DeviceMessage is an attribute report received from a device.
type DeviceMessage struct {
	IEEEAddress uint64
	LinkQuality uint8
	ClusterName string
	Endpoint    uint8
	Attributes  map[string]interface{}
}

// BridgeDevice is one entry of the bridge/devices list.
type BridgeDevice struct {
	IEEEAddress      string    `json:"ieee_address"`
	FriendlyName     string    `json:"friendly_name"`
	NetworkAddress   uint16    `json:"network_address"`
	ModelID          string    `json:"model_id,omitempty"`
	ManufacturerName string    `json:"manufacturer,omitempty"`
	Supported        bool      `json:"supported"`
	Endpoints        []uint8   `json:"endpoints,omitempty"`
	LastSeen         time.Time `json:"last_seen"`
}
