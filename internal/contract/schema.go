package contract

import "sort"

// Ref returns the $ref pointer of the schema.
func (s Schema) Ref() (string, bool) {
	ref, ok := s["$ref"].(string)
	return ref, ok
}

// Type returns the declared primitive type. For a type list, as allowed by
// OpenAPI 3.1, the first non-null entry is used.
func (s Schema) Type() string {
	switch t := s["type"].(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if name, ok := item.(string); ok && name != "null" {
				return name
			}
		}
	}
	return ""
}

// Example returns the literal example. A present key with a null value still
// counts as an example.
func (s Schema) Example() (any, bool) {
	v, ok := s["example"]
	return v, ok
}

func (s Schema) HasProperties() bool {
	_, ok := s["properties"]
	return ok
}

type Property struct {
	Name   string
	Schema Schema
}

// Properties returns the declared properties sorted by name.
func (s Schema) Properties() []Property {
	raw := asSchema(s["properties"])
	if len(raw) == 0 {
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	props := make([]Property, 0, len(names))
	for _, name := range names {
		props = append(props, Property{Name: name, Schema: asSchema(raw[name])})
	}
	return props
}

func asSchema(v any) Schema {
	switch val := v.(type) {
	case Schema:
		return val
	case map[string]any:
		return Schema(val)
	}
	return Schema{}
}
