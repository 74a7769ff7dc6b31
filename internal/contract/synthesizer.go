package contract

import (
	"sort"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// Generator produces a value for one declared primitive type.
type Generator func(f *gofakeit.Faker) any

func defaultGenerators() map[string]Generator {
	return map[string]Generator{
		"string":  func(f *gofakeit.Faker) any { return f.Word() },
		"integer": func(f *gofakeit.Faker) any { return f.Number(0, 9999) },
		"boolean": func(f *gofakeit.Faker) any { return f.Bool() },
	}
}

// Synthesizer builds request payloads from schemas. It is safe for concurrent use.
type Synthesizer struct {
	mu         sync.Mutex
	faker      *gofakeit.Faker
	generators map[string]Generator
}

// NewSynthesizer returns a synthesizer seeded with seed. A zero seed picks a
// random one.
func NewSynthesizer(seed uint64) *Synthesizer {
	return &Synthesizer{faker: gofakeit.New(seed), generators: defaultGenerators()}
}

// Register adds or replaces the generator for a declared type.
func (s *Synthesizer) Register(typ string, g Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generators[typ] = g
}

// Types lists the types the synthesizer can generate.
func (s *Synthesizer) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.generators))
	for typ := range s.generators {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Synthesize maps every property with a supported type to a generated value.
// Properties of other types are skipped and reported as gaps.
func (s *Synthesizer) Synthesize(schema Schema, reg Registry) (map[string]any, []Gap) {
	schema, gaps := Resolve(schema, reg)
	payload := map[string]any{}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prop := range schema.Properties() {
		typ := prop.Schema.Type()
		gen, ok := s.generators[typ]
		if !ok {
			detail := "no generator for type " + typ
			if typ == "" {
				detail = "property declares no type"
			}
			gaps = append(gaps, Gap{Kind: GapUnsupportedType, Name: prop.Name, Detail: detail})
			continue
		}
		payload[prop.Name] = gen(s.faker)
	}
	return payload, gaps
}
