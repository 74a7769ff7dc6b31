package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	catalog "apitest-backend"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

// Builder turns contract operations into test cases.
type Builder struct {
	BaseURL     string
	Synthesizer *Synthesizer
	Extractor   *Extractor
}

func NewBuilder(baseURL string, synth *Synthesizer, ext *Extractor) *Builder {
	if synth == nil {
		synth = NewSynthesizer(0)
	}
	if ext == nil {
		ext = NewExtractor()
	}
	return &Builder{BaseURL: baseURL, Synthesizer: synth, Extractor: ext}
}

// WithBaseURL returns a copy of the builder targeting another base URL. The
// generator registries are shared.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	clone := *b
	clone.BaseURL = baseURL
	return &clone
}

func (b *Builder) baseURL() string {
	base := strings.TrimSpace(b.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// Build produces one test case per path, method and 2xx response code. Paths
// are visited in sorted order so repeated builds list tests identically.
func (b *Builder) Build(doc *Document) ([]catalog.TestCase, []Gap, error) {
	reg := doc.Components.Schemas
	base := b.baseURL()
	tests := []catalog.TestCase{}
	gaps := []Gap{}
	for _, path := range doc.SortedPaths() {
		item := doc.Paths[path]
		for _, mo := range item.Operations() {
			location := mo.Method + " " + path
			var payload json.RawMessage
			if schema, ok := mo.Operation.RequestSchema(); ok {
				body, bodyGaps := b.Synthesizer.Synthesize(schema, reg)
				gaps = append(gaps, withLocation(bodyGaps, location+" request")...)
				encoded, err := json.Marshal(body)
				if err != nil {
					return nil, nil, fmt.Errorf("encode payload for %s: %w", location, err)
				}
				payload = encoded
			}
			for _, success := range mo.Operation.SuccessResponses() {
				expected, respGaps := b.Extractor.Extract(success.Response.ResponseSchema(), reg)
				gaps = append(gaps, withLocation(respGaps, fmt.Sprintf("%s %d", location, success.Code))...)
				encoded, err := json.Marshal(expected)
				if err != nil {
					return nil, nil, fmt.Errorf("encode expected response for %s %d: %w", location, success.Code, err)
				}
				tests = append(tests, catalog.TestCase{
					URL:                base + path,
					Method:             mo.Method,
					Payload:            payload,
					ExpectedStatusCode: success.Code,
					ExpectedResponse:   encoded,
				})
			}
		}
	}
	return tests, gaps, nil
}
