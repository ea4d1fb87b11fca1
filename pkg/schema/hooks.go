package schema

import (
	"reflect"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var (
	valueType    = reflect.TypeOf(domain.Value{})
	nodeKindType = reflect.TypeOf(domain.NodeKind(""))
)

// valueHook turns native scalars into domain.Value.
func valueHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != valueType {
		return data, nil
	}
	return domain.ValueOf(data)
}

// nodeKindHook normalises legacy kind aliases.
func nodeKindHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != nodeKindType {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return domain.ParseNodeKind(s)
}

// scalarStringHook renders numbers and booleans into string fields the way an
// author would type them, so `newValue: 5` and `newValue: "5"` decode alike.
func scalarStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		v, err := domain.ValueOf(data)
		if err != nil {
			return data, nil
		}
		return v.String(), nil
	}
	return data, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			valueHook,
			nodeKindHook,
			scalarStringHook,
		),
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
