package schema

import (
	"fmt"
	"reflect"
)

// Type checks one capability argument value against a declared kind.
type Type interface {
	// Name is the human-readable type name shown in rejection feedback.
	Name() string
	// Check reports why value does not conform, or nil.
	Check(value any) error
}

// String declares a string argument.
func String() Type { return stringType{} }

// Int declares an integer argument. The script parser produces int64;
// whole-number floats are accepted because results that round-tripped
// through JSON arrive as float64.
func Int() Type { return intType{} }

// Float declares a numeric argument. Integers are acceptable floats.
func Float() Type { return floatType{} }

// Bool declares a boolean argument.
func Bool() Type { return boolType{} }

// Slice declares a list argument whose elements all conform to elem.
// Script list literals arrive as []any.
func Slice(elem Type) Type { return sliceType{elem: elem} }

// Custom declares an argument checked by fn. name appears in rejection
// feedback, so phrase it as a type ("non-empty string").
func Custom(name string, fn func(value any) error) Type {
	return customType{name: name, fn: fn}
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Check(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Check(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got fractional number %v", v)
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) Check(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Check(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Check(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list of %s, got %T", t.elem.Name(), value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Check(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type customType struct {
	name string
	fn   func(value any) error
}

func (t customType) Name() string { return t.name }

func (t customType) Check(value any) error { return t.fn(value) }
