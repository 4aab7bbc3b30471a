// Package topic recovers the device and endpoint addressed by an inbound MQTT topic.
//
// Topics have the form <base>/<device>[/<endpoint>]/<set|get>. Both base and device
// may contain '/', so parsing strips the known prefix and suffix and classifies
// whatever segments remain.
package topic

import (
	"strings"

	"github.com/supby/zbridge/internal/types"
)

// DefaultEndpointNames are the postfixes multi-endpoint devices use in topics.
var DefaultEndpointNames = []string{
	"left",
	"right",
	"center",
	"bottom_left",
	"bottom_right",
	"top_left",
	"top_right",
	"l1",
	"l2",
	"l3",
	"l4",
}

type BaseTopicProvider interface {
	GetBaseTopic() string
}

type Parser struct {
	settings      BaseTopicProvider
	endpointNames map[string]struct{}
}

// NewParser uses DefaultEndpointNames when endpointNames is empty.
func NewParser(settings BaseTopicProvider, endpointNames []string) *Parser {
	if len(endpointNames) == 0 {
		endpointNames = DefaultEndpointNames
	}

	names := make(map[string]struct{}, len(endpointNames))
	for _, n := range endpointNames {
		names[n] = struct{}{}
	}

	return &Parser{
		settings:      settings,
		endpointNames: names,
	}
}

// Parse returns false for topics that are not device set/get topics under the current base topic.
func (p *Parser) Parse(topic string) (types.ParsedTopic, bool) {
	prefix := p.settings.GetBaseTopic() + "/"
	if !strings.HasPrefix(topic, prefix) {
		return types.ParsedTopic{}, false
	}

	segments := strings.Split(strings.TrimPrefix(topic, prefix), "/")

	last := len(segments) - 1
	msgType := types.MessageType(segments[last])
	if msgType != types.MessageTypeSet && msgType != types.MessageTypeGet {
		return types.ParsedTopic{}, false
	}

	rest := segments[:last]
	if len(rest) == 0 {
		return types.ParsedTopic{}, false
	}

	endpoint := ""
	// the endpoint segment needs at least one device segment in front of it
	if len(rest) > 1 && p.IsEndpointName(rest[len(rest)-1]) {
		endpoint = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	deviceID := strings.Join(rest, "/")
	if deviceID == "" {
		return types.ParsedTopic{}, false
	}

	return types.ParsedTopic{
		Type:     msgType,
		DeviceID: deviceID,
		Endpoint: endpoint,
	}, true
}

func (p *Parser) IsEndpointName(name string) bool {
	_, ok := p.endpointNames[name]
	return ok
}
