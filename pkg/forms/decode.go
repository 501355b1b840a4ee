package forms

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode maps a record onto a struct whose fields carry `form` tags.
// Numeric and boolean targets are converted from their string values.
func Decode(record Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("forms: decoder: %w", err)
	}
	if err := dec.Decode(map[string]string(record)); err != nil {
		return fmt.Errorf("forms: decode record: %w", err)
	}
	return nil
}

// Encode is the inverse of Decode: it flattens a tagged struct into a
// record. Non-string values are formatted with %v.
func Encode(in any) (Record, error) {
	var raw map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "form",
		Result:  &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("forms: encoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("forms: encode struct: %w", err)
	}

	rec := make(Record, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			rec[k] = s
			continue
		}
		rec[k] = fmt.Sprint(v)
	}
	return rec, nil
}
