package mcp

import (
	"fmt"
	"reflect"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

var factsType = reflect.TypeOf(domain.FactsJSON(""))

// factsHook accepts set_facts either as a JSON object or as its text.
func factsHook(from, to reflect.Type, data any) (any, error) {
	if to != factsType {
		return data, nil
	}
	switch v := data.(type) {
	case map[string]any:
		return domain.FactsFromMap(v)
	case string:
		return domain.FactsJSON(v), nil
	}
	return data, nil
}

// decodeRecord turns loosely typed tool arguments into a record, using the JSON field names.
func decodeRecord[T domain.Record](raw any) (T, error) {
	var rec T
	m, ok := raw.(map[string]any)
	if !ok {
		return rec, fmt.Errorf("%w: record must be an object, got %T", domain.ErrInvalid, raw)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &rec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       factsHook,
	})
	if err != nil {
		return rec, err
	}
	if err := dec.Decode(m); err != nil {
		return rec, fmt.Errorf("%w: %v", domain.ErrInvalid, err)
	}
	return rec, nil
}
