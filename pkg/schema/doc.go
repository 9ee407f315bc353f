// Package schema describes and validates the structured data crossing the
// model boundary.
//
// Tool parameters are declared as an ordered Params list. The same list is
// used to validate model-supplied arguments and to render the JSON-schema
// fragment presented to the model:
//
//	params := schema.Params{
//	    {Name: "query", Type: schema.String(), Description: "Gmail search query", Required: true},
//	    {Name: "limit", Type: schema.Int()},
//	}
//
//	if err := params.Validate(args); err != nil {
//	    // *AggregateError with one *ValidationError per offending field
//	}
//
// Structured model output (JSON, possibly wrapped in markdown fences) is parsed
// with DecodeStrict, which rejects unknown fields and enforces validator tags.
package schema
