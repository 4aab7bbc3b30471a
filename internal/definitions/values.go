package definitions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/supby/zbridge/internal/types"
)

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}

	return 0, false
}

func toUpperString(value interface{}) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}

	return strings.ToUpper(s), true
}

// transitionTime is the ZCL transition time (tenths of a second) for the optional
// "transition" key (seconds) of the message.
func transitionTime(message types.Payload) int {
	v, ok := message.Get("transition")
	if !ok {
		return 0
	}

	seconds, ok := toFloat(v)
	if !ok || seconds < 0 {
		return 0
	}

	return int(math.Round(seconds * 10))
}

func inRange(key string, value interface{}, min, max float64) (float64, error) {
	f, ok := toFloat(value)
	if !ok {
		return 0, fmt.Errorf("%v: '%v' is not a number", key, value)
	}
	if math.IsNaN(f) || f < min || f > max {
		return 0, fmt.Errorf("%v: %v is outside %v..%v", key, f, min, max)
	}

	return f, nil
}
