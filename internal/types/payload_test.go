package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadKeepsKeyOrder(t *testing.T) {
	p, err := DecodePayload([]byte(`{"state":"ON","brightness":200,"color":{"x":0.1,"y":0.2},"alpha":true}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"state", "brightness", "color", "alpha"}, p.Keys())

	v, ok := p.Get("brightness")
	assert.True(t, ok)
	assert.Equal(t, float64(200), v)

	v, ok = p.Get("color")
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"x": 0.1, "y": 0.2}, v)
}

func TestDecodePayloadDuplicateKey(t *testing.T) {
	p, err := DecodePayload([]byte(`{"state":"ON","brightness":1,"state":"OFF"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"state", "brightness"}, p.Keys())
	v, _ := p.Get("state")
	assert.Equal(t, "OFF", v)
}

func TestDecodePayloadInvalid(t *testing.T) {
	for _, data := range []string{``, `online`, `[1,2]`, `"str"`, `{"state":`, `{"a":1} {"b":2}`} {
		_, err := DecodePayload([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestDecodePayloadEmptyObject(t *testing.T) {
	p, err := DecodePayload([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestArguments(t *testing.T) {
	args := Arguments{}
	args = args.Set("level", "200")
	args = args.Set("transtime", 0)
	args = args.Set("level", "100")

	assert.Equal(t, Arguments{{Name: "level", Value: "100"}, {Name: "transtime", Value: 0}}, args)
	assert.Equal(t, map[string]interface{}{"level": "100", "transtime": 0}, args.Map())

	_, ok := args.Get("missing")
	assert.False(t, ok)
}

func TestEndpoint(t *testing.T) {
	var unset Endpoint
	assert.False(t, unset.IsSet())

	def := DeviceDefaultEndpoint()
	assert.True(t, def.IsSet())
	_, ok := def.Explicit()
	assert.False(t, ok)

	ep := ExplicitEndpoint(1)
	id, ok := ep.Explicit()
	assert.True(t, ok)
	assert.Equal(t, uint8(1), id)
	assert.NotEqual(t, def, ep)
}

func TestCommandClassValid(t *testing.T) {
	assert.True(t, CommandClassFunctional.Valid())
	assert.True(t, CommandClassGeneric.Valid())
	assert.False(t, CommandClass("write").Valid())
}
