package utils

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

func toFloat64(value interface{}) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	}

	return 0, false
}

func setNumber(f reflect.Value, value interface{}) error {
	n, ok := toFloat64(value)
	if !ok {
		return fmt.Errorf("'%v' is not a number", value)
	}
	n = math.Round(n)

	switch f.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || f.OverflowUint(uint64(n)) {
			return fmt.Errorf("%v overflows %v", value, f.Type())
		}
		f.SetUint(uint64(n))
	default:
		if f.OverflowInt(int64(n)) {
			return fmt.Errorf("%v overflows %v", value, f.Type())
		}
		f.SetInt(int64(n))
	}

	return nil
}

func setStructPropertyByName(name string, value interface{}, s reflect.Value) error {
	f := s.FieldByName(name)
	if !f.IsValid() || !f.CanSet() {
		return fmt.Errorf("no settable field '%v' in %v", name, s.Type())
	}

	switch f.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if err := setNumber(f, value); err != nil {
			return fmt.Errorf("field '%v': %w", name, err)
		}
	case reflect.Float32, reflect.Float64:
		n, ok := toFloat64(value)
		if !ok {
			return fmt.Errorf("field '%v': '%v' is not a number", name, value)
		}
		f.SetFloat(n)
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			f.SetBool(v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("field '%v': %w", name, err)
			}
			f.SetBool(b)
		default:
			return fmt.Errorf("field '%v': '%v' is not a bool", name, value)
		}
	case reflect.String:
		f.SetString(fmt.Sprint(value))
	default:
		return fmt.Errorf("field '%v' has unsupported kind %v", name, f.Kind())
	}

	return nil
}

// SetStructProperties assigns srcMap values to the fields of the struct dst points to,
// converting numbers and numeric strings to the field type.
func SetStructProperties(srcMap map[string]interface{}, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%T is not a pointer to struct", dst)
	}

	for key, value := range srcMap {
		if err := setStructPropertyByName(key, value, v.Elem()); err != nil {
			return err
		}
	}

	return nil
}
