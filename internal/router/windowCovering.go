package router

import (
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
)

// Window covering client commands, not provided by the zcl module.
type UpOpen struct{}

type DownClose struct{}

type Stop struct{}

type GoToLiftPercentage struct {
	PercentageLiftValue uint8
}

const (
	WindowCoveringId     = zigbee.ClusterID(0x0102)
	UpOpenId             = zcl.CommandIdentifier(0x00)
	DownCloseId          = zcl.CommandIdentifier(0x01)
	StopId               = zcl.CommandIdentifier(0x02)
	GoToLiftPercentageId = zcl.CommandIdentifier(0x05)
)

func registerWindowCovering(cr *zcl.CommandRegistry) {
	cr.RegisterLocal(WindowCoveringId, zigbee.NoManufacturer, zcl.ClientToServer, UpOpenId, &UpOpen{})
	cr.RegisterLocal(WindowCoveringId, zigbee.NoManufacturer, zcl.ClientToServer, DownCloseId, &DownClose{})
	cr.RegisterLocal(WindowCoveringId, zigbee.NoManufacturer, zcl.ClientToServer, StopId, &Stop{})
	cr.RegisterLocal(WindowCoveringId, zigbee.NoManufacturer, zcl.ClientToServer, GoToLiftPercentageId, &GoToLiftPercentage{})
}
