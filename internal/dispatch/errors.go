package dispatch

import "errors"

var (
	// ErrUnknownEndpoint: the topic names an endpoint the device model does not have.
	ErrUnknownEndpoint = errors.New("unknown endpoint name")
	// ErrNoReader: the matching converter cannot answer get messages.
	ErrNoReader = errors.New("converter does not support get")
	// ErrInvalidCommandClass: a converter produced a command class outside the closed set.
	ErrInvalidCommandClass = errors.New("invalid command class")
)
