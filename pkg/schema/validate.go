package schema

import "sort"

// Param declares one model-supplied parameter of a tool.
type Param struct {
	Name        string
	Type        Type
	Description string
	Required    bool
}

// Params is an ordered parameter list.
type Params []Param

// Names returns the parameter names in declaration order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Lookup returns the parameter with the given name.
func (p Params) Lookup(name string) (Param, bool) {
	for _, param := range p {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// Validate checks data against the declared parameters.
// Required parameters must be present, present values must match their type,
// and keys that are not declared are rejected.
// Returns an *AggregateError with all validation failures found.
func (p Params) Validate(data map[string]any) error {
	var errs []error

	for _, param := range p {
		value, exists := data[param.Name]
		if !exists || value == nil {
			if param.Required {
				errs = append(errs, &ValidationError{Key: param.Name, Reason: "required"})
			}
			continue
		}
		if err := param.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    param.Name,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	// Deterministic order for undeclared keys
	var unknown []string
	for key := range data {
		if _, ok := p.Lookup(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, &ValidationError{Key: key, Reason: "not a declared parameter"})
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// JSONSchema renders the parameters as a JSON-schema object.
func (p Params) JSONSchema() map[string]any {
	properties := make(map[string]any, len(p))
	required := []string{}
	for _, param := range p {
		prop := param.Type.JSONSchema()
		if param.Description != "" {
			prop["description"] = param.Description
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
