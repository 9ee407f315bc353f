package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// Bind adapts a typed handler into a ToolFunction.
// The resolved argument mapping is decoded into T through `mapstructure` tags
// and checked against its `validate` tags before fn runs. Decoding or validation
// failures are reported as *domain.InvalidArgumentsError.
func Bind[T any](fn func(ctx context.Context, args T) (any, error)) ToolFunction {
	return func(ctx context.Context, raw map[string]any) (any, error) {
		var args T
		if err := Decode(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

// Decode decodes raw into out and validates the result.
func Decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			listHook,
			timeHook,
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return &domain.InvalidArgumentsError{Err: fmt.Errorf("malformed arguments: %w", err)}
	}
	if err := schema.Struct(out); err != nil {
		return &domain.InvalidArgumentsError{Fields: schema.FieldNames(err), Err: err}
	}
	return nil
}

// listHook accepts a single comma-separated string where a list is expected.
func listHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	return splitList(data.(string)), nil
}

// timeHook parses RFC 3339 strings into time.Time. An empty string is the zero time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
