package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCommand struct {
	Level          uint8
	TransitionTime uint16
	Offset         int16
	Gain           float32
	Enabled        bool
	Label          string
	Ignored        []byte
}

func TestSetStructProperties(t *testing.T) {
	cmd := &testCommand{}

	err := SetStructProperties(map[string]interface{}{
		"Level":          "200",
		"TransitionTime": 15,
		"Offset":         float64(-3),
		"Gain":           "1.5",
		"Enabled":        "true",
		"Label":          42,
	}, cmd)

	require.NoError(t, err)
	assert.Equal(t, testCommand{Level: 200, TransitionTime: 15, Offset: -3, Gain: 1.5, Enabled: true, Label: "42"}, *cmd)
}

func TestSetStructPropertiesRounds(t *testing.T) {
	cmd := &testCommand{}

	require.NoError(t, SetStructProperties(map[string]interface{}{"Level": 42.6}, cmd))
	assert.Equal(t, uint8(43), cmd.Level)
}

func TestSetStructPropertiesErrors(t *testing.T) {
	cases := []map[string]interface{}{
		{"Level": 256},
		{"Level": -1},
		{"Level": "bright"},
		{"Enabled": 1},
		{"Missing": 1},
		{"Ignored": 1},
	}

	for _, c := range cases {
		assert.Error(t, SetStructProperties(c, &testCommand{}), "%v", c)
	}

	assert.Error(t, SetStructProperties(map[string]interface{}{}, testCommand{}))
}
