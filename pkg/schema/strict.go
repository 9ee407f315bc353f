package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNoJSON is returned when the text does not hold a JSON object.
var ErrNoJSON = errors.New("no JSON object found")

// DecodeError is returned when structured model output cannot be parsed.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed structured output: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var fence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// validate is safe for concurrent use and never mutated after init.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ExtractJSON returns the JSON object held by text, unwrapping a markdown fence if present.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(trimmed); m != nil {
		trimmed = strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(trimmed, "{") {
		return "", ErrNoJSON
	}
	return trimmed, nil
}

// DecodeStrict parses a JSON object from text into out.
// Unknown fields, trailing data and failed `validate` tags are all errors.
func DecodeStrict(text string, out any) error {
	payload, err := ExtractJSON(text)
	if err != nil {
		return &DecodeError{Raw: text, Err: err}
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &DecodeError{Raw: text, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &DecodeError{Raw: text, Err: errors.New("unexpected data after JSON object")}
	}

	if err := Struct(out); err != nil {
		return &DecodeError{Raw: text, Err: err}
	}
	return nil
}

// Struct validates the `validate` tags of v.
// Field failures are returned as an *AggregateError of *ValidationError.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve := &ValidationError{Key: fe.Field(), Reason: reason(fe)}
		if fe.Tag() != "required" {
			ve.Value = fe.Value()
		}
		errs = append(errs, ve)
	}
	return &AggregateError{Errors: errs}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return "failed " + fe.Tag()
}
