package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidContract = errors.New("invalid contract document")

// Schema is a JSON-Schema-like object kept in its decoded form so that an
// unrecognized schema can be handed back exactly as it was written.
type Schema map[string]any

// Registry maps component schema names to their definitions.
type Registry map[string]Schema

type Document struct {
	OpenAPI    string              `json:"openapi"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

type Components struct {
	Schemas Registry `json:"schemas"`
}

type PathItem struct {
	Get     *Operation `json:"get"`
	Put     *Operation `json:"put"`
	Post    *Operation `json:"post"`
	Delete  *Operation `json:"delete"`
	Options *Operation `json:"options"`
	Head    *Operation `json:"head"`
	Patch   *Operation `json:"patch"`
	Trace   *Operation `json:"trace"`
}

type Operation struct {
	OperationID string              `json:"operationId"`
	RequestBody *RequestBody        `json:"requestBody"`
	Responses   map[string]Response `json:"responses"`
}

type RequestBody struct {
	Content map[string]MediaType `json:"content"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content"`
}

type MediaType struct {
	Schema Schema `json:"schema"`
}

const jsonMediaType = "application/json"

// MethodOperation pairs an HTTP method with its operation.
type MethodOperation struct {
	Method    string
	Operation *Operation
}

// Operations lists the declared operations in a fixed method order.
func (p PathItem) Operations() []MethodOperation {
	all := []MethodOperation{
		{"GET", p.Get}, {"PUT", p.Put}, {"POST", p.Post}, {"DELETE", p.Delete},
		{"OPTIONS", p.Options}, {"HEAD", p.Head}, {"PATCH", p.Patch}, {"TRACE", p.Trace},
	}
	out := make([]MethodOperation, 0, len(all))
	for _, mo := range all {
		if mo.Operation != nil {
			out = append(out, mo)
		}
	}
	return out
}

// RequestSchema returns the JSON request body schema, if declared.
func (o *Operation) RequestSchema() (Schema, bool) {
	if o.RequestBody == nil {
		return nil, false
	}
	media, ok := o.RequestBody.Content[jsonMediaType]
	if !ok || media.Schema == nil {
		return nil, false
	}
	return media.Schema, true
}

// SuccessCode is a 2xx response of an operation.
type SuccessCode struct {
	Code     int
	Response Response
}

// SuccessResponses returns the numeric 2xx responses in ascending code order.
// Range keys such as "2XX" and "default" are ignored.
func (o *Operation) SuccessResponses() []SuccessCode {
	out := []SuccessCode{}
	for key, resp := range o.Responses {
		code, err := strconv.Atoi(key)
		if err != nil || code < 200 || code >= 300 {
			continue
		}
		out = append(out, SuccessCode{Code: code, Response: resp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ResponseSchema returns the JSON schema of a response, or an empty schema when
// the response declares no JSON content.
func (r Response) ResponseSchema() Schema {
	media, ok := r.Content[jsonMediaType]
	if !ok || media.Schema == nil {
		return Schema{}
	}
	return media.Schema
}

// SortedPaths returns the document paths in lexical order.
func (d *Document) SortedPaths() []string {
	paths := make([]string, 0, len(d.Paths))
	for path := range d.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Parse decodes a contract written as JSON or YAML. YAML input is converted to
// its JSON form first so both encodings produce identical values. Numbers are
// kept as json.Number so examples survive unchanged.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidContract)
	}
	if trimmed[0] != '{' {
		var generic any
		if err := yaml.Unmarshal(trimmed, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContract, err)
		}
		converted, err := json.Marshal(jsonCompatible(generic))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContract, err)
		}
		trimmed = converted
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContract, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidContract)
	}
	if doc.Paths == nil {
		doc.Paths = map[string]PathItem{}
	}
	if doc.Components.Schemas == nil {
		doc.Components.Schemas = Registry{}
	}
	return &doc, nil
}

// jsonCompatible rewrites YAML maps with non-string keys, such as bare response
// codes, into string-keyed maps.
func jsonCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = jsonCompatible(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = jsonCompatible(item)
		}
		return val
	default:
		return v
	}
}
