package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrPayloadNotObject = errors.New("payload is not a JSON object")

type PayloadField struct {
	Key   string
	Value interface{}
}

// Payload is a decoded JSON object which keeps the key order of the wire message.
// Nested values are decoded the encoding/json way (map[string]interface{}, float64, ...).
type Payload []PayloadField

func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrPayloadNotObject
	}

	ret := Payload{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decoding value of '%v': %w", key, err)
		}

		ret = ret.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if dec.More() {
		return nil, fmt.Errorf("trailing data after payload object")
	}

	return ret, nil
}

func (p Payload) Get(key string) (interface{}, bool) {
	for _, f := range p {
		if f.Key == key {
			return f.Value, true
		}
	}

	return nil, false
}

// Set replaces the value of an existing key in place, so duplicated keys keep their first position.
func (p Payload) Set(key string, value interface{}) Payload {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}

	return append(p, PayloadField{Key: key, Value: value})
}

func (p Payload) Keys() []string {
	ret := make([]string, len(p))
	for i, f := range p {
		ret[i] = f.Key
	}

	return ret
}
