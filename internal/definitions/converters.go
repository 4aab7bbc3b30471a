package definitions

import (
	"fmt"
	"math"

	"github.com/supby/zbridge/internal/types"
)

const (
	ClusterOnOff          = "genOnOff"
	ClusterLevelControl   = "genLevelCtrl"
	ClusterColorControl   = "lightingColorCtrl"
	ClusterWindowCovering = "closuresWindowCovering"

	CommandRead = "read"
)

type baseConverter struct {
	key      string
	endpoint types.Endpoint
}

func (b baseConverter) Key() string {
	return b.key
}

func (b baseConverter) EndpointHint() types.Endpoint {
	return b.endpoint
}

func (b baseConverter) command(cluster string, command string, args types.Arguments) *types.Command {
	if args == nil {
		args = types.Arguments{}
	}

	return &types.Command{
		Cluster:   cluster,
		Command:   command,
		Class:     types.CommandClassFunctional,
		Arguments: args,
		Endpoint:  b.endpoint,
	}
}

func (b baseConverter) read(cluster string, attributes ...string) *types.Command {
	return &types.Command{
		Cluster:   cluster,
		Command:   CommandRead,
		Class:     types.CommandClassGeneric,
		Arguments: types.Arguments{{Name: "attributes", Value: attributes}},
		Endpoint:  b.endpoint,
	}
}

type onOffConverter struct {
	baseConverter
}

var onOffCommands = map[string]string{
	"ON":     "on",
	"OFF":    "off",
	"TOGGLE": "toggle",
}

func (c *onOffConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	state, ok := toUpperString(value)
	if !ok {
		return false
	}

	_, ok = onOffCommands[state]
	return ok
}

func (c *onOffConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	state, _ := toUpperString(value)
	cmd, ok := onOffCommands[state]
	if !ok {
		return nil, fmt.Errorf("%v: unsupported state '%v'", key, value)
	}

	return c.command(ClusterOnOff, cmd, nil), nil
}

func (c *onOffConverter) Read(key string, def *Definition) (*types.Command, error) {
	return c.read(ClusterOnOff, "onOff"), nil
}

type brightnessConverter struct {
	baseConverter
}

func (c *brightnessConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	_, ok := toFloat(value)
	return ok
}

func (c *brightnessConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	if _, err := inRange(key, value, 0, 255); err != nil {
		return nil, err
	}

	return c.command(ClusterLevelControl, "moveToLevelWithOnOff", types.Arguments{
		{Name: "level", Value: value},
		{Name: "transtime", Value: transitionTime(message)},
	}), nil
}

func (c *brightnessConverter) Read(key string, def *Definition) (*types.Command, error) {
	return c.read(ClusterLevelControl, "currentLevel"), nil
}

type colorTempConverter struct {
	baseConverter
}

func (c *colorTempConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	_, ok := toFloat(value)
	return ok
}

func (c *colorTempConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	mireds, err := inRange(key, value, 0, 0xfeff)
	if err != nil {
		return nil, err
	}

	return c.command(ClusterColorControl, "moveToColorTemp", types.Arguments{
		{Name: "colortemp", Value: int(math.Round(mireds))},
		{Name: "transtime", Value: transitionTime(message)},
	}), nil
}

func (c *colorTempConverter) Read(key string, def *Definition) (*types.Command, error) {
	return c.read(ClusterColorControl, "colorTemperature"), nil
}

type colorXYConverter struct {
	baseConverter
}

func (c *colorXYConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	_, ok := value.(map[string]interface{})
	return ok
}

func (c *colorXYConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	color := value.(map[string]interface{})

	x, err := inRange(key+".x", color["x"], 0, 1)
	if err != nil {
		return nil, err
	}
	y, err := inRange(key+".y", color["y"], 0, 1)
	if err != nil {
		return nil, err
	}

	return c.command(ClusterColorControl, "moveToColor", types.Arguments{
		{Name: "colorx", Value: int(math.Round(x * 65535))},
		{Name: "colory", Value: int(math.Round(y * 65535))},
		{Name: "transtime", Value: transitionTime(message)},
	}), nil
}

func (c *colorXYConverter) Read(key string, def *Definition) (*types.Command, error) {
	return c.read(ClusterColorControl, "currentX", "currentY"), nil
}

type coverStateConverter struct {
	baseConverter
}

var coverCommands = map[string]string{
	"OPEN":  "upOpen",
	"CLOSE": "downClose",
	"STOP":  "stop",
}

func (c *coverStateConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	state, ok := toUpperString(value)
	if !ok {
		return false
	}

	_, ok = coverCommands[state]
	return ok
}

func (c *coverStateConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	state, _ := toUpperString(value)
	cmd, ok := coverCommands[state]
	if !ok {
		return nil, fmt.Errorf("%v: unsupported state '%v'", key, value)
	}

	return c.command(ClusterWindowCovering, cmd, nil), nil
}

type coverPositionConverter struct {
	baseConverter
}

func (c *coverPositionConverter) Matches(key string, value interface{}) bool {
	if key != c.key {
		return false
	}

	_, ok := toFloat(value)
	return ok
}

func (c *coverPositionConverter) Convert(key string, value interface{}, message types.Payload, def *Definition) (*types.Command, error) {
	position, err := inRange(key, value, 0, 100)
	if err != nil {
		return nil, err
	}

	return c.command(ClusterWindowCovering, "goToLiftPercentage", types.Arguments{
		{Name: "percentageliftvalue", Value: int(math.Round(position))},
	}), nil
}

func (c *coverPositionConverter) Read(key string, def *Definition) (*types.Command, error) {
	return c.read(ClusterWindowCovering, "currentPositionLiftPercentage"), nil
}
