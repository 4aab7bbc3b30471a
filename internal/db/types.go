package db

import (
	"fmt"
	"time"
)

type Device struct {
	IEEEAddress    uint64
	NetworkAddress uint16
	LogicalType    uint8
	LQI            uint8
	Depth          uint8
	LastDiscovered time.Time
	LastReceived   time.Time

	// from the Basic cluster, selects the device definition
	ModelID          string
	ManufacturerName string
	ManufacturerCode uint16
	Endpoints        []uint8
	FriendlyName     string
}

// Name is the friendly name, or the IEEE address when none is set.
func (d Device) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}

	return FormatIEEEAddress(d.IEEEAddress)
}

func FormatIEEEAddress(ieeeAddress uint64) string {
	return fmt.Sprintf("0x%016x", ieeeAddress)
}
