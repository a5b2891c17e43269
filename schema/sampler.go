package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// ErrNotStruct is returned when Sample is given a type that is not a struct.
var ErrNotStruct = errors.New("schema: not a struct type")

// ValidationError reports default values rejected when constructing the instance.
type ValidationError struct {
	Type string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.Type, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// IsSchema reports whether t (or the type t points to) is a struct.
func IsSchema(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// Sample returns a default-populated value of struct type t. When t is a pointer to a
// struct, a pointer to a sampled struct is returned.
func Sample(t reflect.Type) (any, error) {
	if !IsSchema(t) {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	ptr := t.Kind() == reflect.Pointer
	if ptr {
		t = t.Elem()
	}

	v, err := build(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	if ptr {
		return v.Addr().Interface(), nil
	}
	return v.Interface(), nil
}

// build returns an addressable struct value of type t. Types already being built higher up
// the recursion are left nil, which keeps self-referencing structs finite.
func build(t reflect.Type, building map[reflect.Type]bool) (reflect.Value, error) {
	building[t] = true
	defer delete(building, t)

	data, err := defaults(t, building)
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out.Interface(),
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(data); err != nil {
		return reflect.Value{}, &ValidationError{Type: t.String(), Err: err}
	}

	if err := validate.Struct(out.Interface()); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return reflect.Value{}, &ValidationError{Type: t.String(), Err: err}
		}
	}
	return out.Elem(), nil
}

// defaults assembles the field values of t keyed by their mapstructure names.
func defaults(t reflect.Type, building map[reflect.Type]bool) (map[string]any, error) {
	data := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}

		switch ft := f.Type; {
		case ft.Kind() == reflect.Struct && !building[ft]:
			v, err := build(ft, building)
			if err != nil {
				return nil, err
			}
			data[name] = v.Interface()
		case ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct && !building[ft.Elem()]:
			v, err := build(ft.Elem(), building)
			if err != nil {
				return nil, err
			}
			data[name] = v.Addr().Interface()
		default:
			data[name] = zero(ft)
		}
	}
	return data, nil
}

// zero maps the primitive kinds to their zero value and everything else to nil.
func zero(t reflect.Type) any {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String, reflect.Bool:
		return reflect.Zero(t).Interface()
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("mapstructure")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}

// Describe returns the JSON Schema of t, indented.
func Describe(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := &jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}
	s := r.ReflectFromType(t)
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
