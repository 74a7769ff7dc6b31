package contract

import "sync"

const anyPlaceholder = "<any>"

// Extractor derives expected responses from response schemas.
type Extractor struct {
	mu           sync.RWMutex
	placeholders map[string]string
}

func NewExtractor() *Extractor {
	return &Extractor{placeholders: map[string]string{}}
}

// Register overrides the placeholder token written for a declared type.
func (e *Extractor) Register(typ, token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placeholders[typ] = token
}

func (e *Extractor) placeholder(typ string) string {
	if typ == "" {
		return anyPlaceholder
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if token, ok := e.placeholders[typ]; ok {
		return token
	}
	return "<" + typ + ">"
}

// Extract returns the schema example verbatim when there is one, otherwise a map
// of property names to type placeholders, otherwise the schema itself.
func (e *Extractor) Extract(schema Schema, reg Registry) (any, []Gap) {
	schema, gaps := Resolve(schema, reg)
	if example, ok := schema.Example(); ok {
		return example, gaps
	}
	if schema.HasProperties() {
		shape := map[string]any{}
		for _, prop := range schema.Properties() {
			shape[prop.Name] = e.placeholder(prop.Schema.Type())
		}
		return shape, gaps
	}
	return schema, gaps
}
