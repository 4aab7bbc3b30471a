package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/supby/zbridge/internal/configuration"
)

type DeviceLookup interface {
	FindDevice(ctx context.Context, identifier string) (Device, bool)
	// DeviceName is the name a device is published under.
	DeviceName(ctx context.Context, ieeeAddress uint64) string
}

type deviceLookup struct {
	database DeviceDB
	config   configuration.ConfigurationService
}

// NewDeviceLookup resolves topic device ids: a 0x prefixed IEEE address, a friendly
// name from the configuration devices section, or a friendly name stored with the device.
func NewDeviceLookup(database DeviceDB, config configuration.ConfigurationService) DeviceLookup {
	return &deviceLookup{
		database: database,
		config:   config,
	}
}

func ParseIEEEAddress(s string) (uint64, bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, false
	}

	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

func (l *deviceLookup) FindDevice(ctx context.Context, identifier string) (Device, bool) {
	if ieee, ok := ParseIEEEAddress(identifier); ok {
		return l.get(ctx, ieee, "")
	}

	for key, dc := range l.config.GetConfiguration().Devices {
		if dc.FriendlyName != identifier {
			continue
		}
		if ieee, ok := ParseIEEEAddress(key); ok {
			return l.get(ctx, ieee, dc.FriendlyName)
		}
	}

	devices, err := l.database.GetDevices(ctx)
	if err != nil {
		return Device{}, false
	}
	for _, d := range devices {
		if d.FriendlyName == identifier {
			return d, true
		}
	}

	return Device{}, false
}

func (l *deviceLookup) get(ctx context.Context, ieee uint64, friendlyName string) (Device, bool) {
	device, err := l.database.GetDevice(ctx, ieee)
	if err != nil {
		return Device{}, false
	}

	if friendlyName == "" {
		friendlyName = l.configuredName(ieee)
	}
	if friendlyName != "" {
		device.FriendlyName = friendlyName
	}

	return device, true
}

func (l *deviceLookup) configuredName(ieee uint64) string {
	for key, dc := range l.config.GetConfiguration().Devices {
		if v, ok := ParseIEEEAddress(key); ok && v == ieee {
			return dc.FriendlyName
		}
	}

	return ""
}

func (l *deviceLookup) DeviceName(ctx context.Context, ieeeAddress uint64) string {
	if name := l.configuredName(ieeeAddress); name != "" {
		return name
	}

	device, err := l.database.GetDevice(ctx, ieeeAddress)
	if err != nil {
		return FormatIEEEAddress(ieeeAddress)
	}

	return device.Name()
}
