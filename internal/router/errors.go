package router

import "errors"

var (
	ErrUnknownCluster   = errors.New("unknown cluster")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrNotStarted       = errors.New("zigbee network is not started")
	ErrInvalidName      = errors.New("invalid friendly name")
)
