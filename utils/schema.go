package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ResponseSchema is the JSON schema a stage requires the model to answer with.
type ResponseSchema struct {
	Name string
	// Flat is the reference-free schema document handed to the model service.
	Flat map[string]any

	definition jsonschema.Definition
}

// NewResponseSchema reflects v into a JSON schema and flattens it.
func NewResponseSchema(name string, v any) (*ResponseSchema, error) {
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s schema: %w", name, err)
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s schema: %w", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s schema: %w", name, err)
	}
	flat, err := FlattenSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten %s schema: %w", name, err)
	}

	// The validator only ever sees the flattened document.
	flatRaw, err := json.Marshal(flat)
	if err != nil {
		return nil, err
	}
	var flatDef jsonschema.Definition
	if err := json.Unmarshal(flatRaw, &flatDef); err != nil {
		return nil, fmt.Errorf("failed to rebuild %s schema: %w", name, err)
	}

	return &ResponseSchema{Name: name, Flat: flat, definition: flatDef}, nil
}

type validator interface {
	Validate() error
}

// Decode parses text into v, checking it against the schema and then against
// v's own field constraints.
func (s *ResponseSchema) Decode(text string, v validator) error {
	if err := jsonschema.VerifySchemaAndUnmarshal(s.definition, []byte(text), v); err != nil {
		return &ValidationError{Field: s.Name, Reason: err.Error()}
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	return nil
}

// FlattenSchema returns a copy of schema with every $ref replaced by the
// definition it points to. Definition tables ($defs, definitions) are dropped.
// Keys next to a $ref override the same keys of the referenced definition.
func FlattenSchema(schema map[string]any) (map[string]any, error) {
	defs := map[string]any{}
	for _, table := range []string{"$defs", "definitions"} {
		if t, ok := schema[table].(map[string]any); ok {
			for name, d := range t {
				defs["#/"+table+"/"+name] = d
			}
		}
	}

	out, err := inlineRefs(schema, defs, nil)
	if err != nil {
		return nil, err
	}
	flat := out.(map[string]any)
	delete(flat, "$defs")
	delete(flat, "definitions")
	return flat, nil
}

func inlineRefs(node any, defs map[string]any, stack []string) (any, error) {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok {
			for _, seen := range stack {
				if seen == ref {
					return nil, fmt.Errorf("cyclic reference %s", ref)
				}
			}
			target, ok := defs[ref]
			if !ok {
				return nil, fmt.Errorf("unresolved reference %s", ref)
			}
			resolved, err := inlineRefs(target, defs, append(stack, ref))
			if err != nil {
				return nil, err
			}
			merged, ok := resolved.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("reference %s is not a schema object", ref)
			}
			for k, v := range n {
				if k == "$ref" {
					continue
				}
				c, err := inlineRefs(v, defs, stack)
				if err != nil {
					return nil, err
				}
				merged[k] = c
			}
			return merged, nil
		}

		// allOf with a single member is how some generators attach a
		// description to a reference.
		if all, ok := n["allOf"].([]any); ok && len(all) == 1 {
			rest := make(map[string]any, len(n))
			for k, v := range n {
				if k != "allOf" {
					rest[k] = v
				}
			}
			member, ok := all[0].(map[string]any)
			if ok {
				combined := make(map[string]any, len(member)+len(rest))
				for k, v := range member {
					combined[k] = v
				}
				for k, v := range rest {
					combined[k] = v
				}
				return inlineRefs(combined, defs, stack)
			}
		}

		out := make(map[string]any, len(n))
		for k, v := range n {
			if k == "$defs" || k == "definitions" {
				continue
			}
			c, err := inlineRefs(v, defs, stack)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			c, err := inlineRefs(v, defs, stack)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return node, nil
	}
}

// schemaType returns the "type" of a flattened schema node, tolerating the
// ["x", "null"] form.
func schemaType(node map[string]any) string {
	switch t := node["type"].(type) {
	case string:
		return strings.ToLower(t)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return strings.ToLower(s)
			}
		}
	}
	return ""
}
