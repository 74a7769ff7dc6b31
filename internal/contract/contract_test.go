package contract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"#/components/schemas/User", "User"},
		{"components.schemas.Order", "Order"},
		{"Plain", "Plain"},
		{"#/components/schemas/a~1b~0c", "a/b~c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RefName(tt.ref), tt.ref)
	}
}

func TestLookupReturnsRegisteredSchema(t *testing.T) {
	user := Schema{"type": "object", "properties": map[string]any{"name": map[string]any{"type": "string"}}}
	reg := Registry{"User": user}

	got, ok := reg.Lookup("#/components/schemas/User")
	require.True(t, ok)
	assert.Equal(t, user, got)

	missing, ok := reg.Lookup("#/components/schemas/Nope")
	assert.False(t, ok)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestResolveReportsUnresolvedRef(t *testing.T) {
	schema, gaps := Resolve(Schema{"$ref": "#/components/schemas/Ghost"}, Registry{})
	assert.Empty(t, schema)
	require.Len(t, gaps, 1)
	assert.Equal(t, GapUnresolvedRef, gaps[0].Kind)
	assert.Equal(t, "Ghost", gaps[0].Name)
}

func TestResolveIsNotRecursive(t *testing.T) {
	reg := Registry{
		"A": Schema{"$ref": "#/components/schemas/B"},
		"B": Schema{"type": "string"},
	}
	schema, gaps := Resolve(Schema{"$ref": "#/components/schemas/A"}, reg)
	assert.Empty(t, gaps)
	ref, ok := schema.Ref()
	assert.True(t, ok)
	assert.Equal(t, "#/components/schemas/B", ref)
}

func TestSynthesizeSupportedTypes(t *testing.T) {
	schema := Schema{"properties": map[string]any{
		"name": map[string]any{"type": "string"},
		"age":  map[string]any{"type": "integer"},
	}}
	payload, gaps := NewSynthesizer(7).Synthesize(schema, nil)

	assert.Empty(t, gaps)
	require.Len(t, payload, 2)
	assert.IsType(t, "", payload["name"])
	assert.IsType(t, 0, payload["age"])
}

func TestSynthesizeSkipsUnsupportedTypes(t *testing.T) {
	schema := Schema{"properties": map[string]any{
		"active": map[string]any{"type": "boolean"},
		"tags":   map[string]any{"type": "array"},
		"score":  map[string]any{"type": "number"},
		"meta":   map[string]any{"type": "object"},
	}}
	payload, gaps := NewSynthesizer(7).Synthesize(schema, nil)

	assert.Len(t, payload, 1)
	assert.IsType(t, true, payload["active"])
	names := []string{}
	for _, g := range gaps {
		assert.Equal(t, GapUnsupportedType, g.Kind)
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"meta", "score", "tags"}, names)
}

func TestSynthesizeResolvesTopLevelRef(t *testing.T) {
	reg := Registry{"Pet": Schema{"properties": map[string]any{"nickname": map[string]any{"type": "string"}}}}
	payload, gaps := NewSynthesizer(1).Synthesize(Schema{"$ref": "#/components/schemas/Pet"}, reg)
	assert.Empty(t, gaps)
	assert.Contains(t, payload, "nickname")
}

func TestSynthesizerRegister(t *testing.T) {
	s := NewSynthesizer(3)
	s.Register("number", func(f *gofakeit.Faker) any { return 1.5 })
	payload, gaps := s.Synthesize(Schema{"properties": map[string]any{"price": map[string]any{"type": "number"}}}, nil)
	assert.Empty(t, gaps)
	assert.Equal(t, 1.5, payload["price"])
	assert.Equal(t, []string{"boolean", "integer", "number", "string"}, s.Types())
}

func TestSynthesizeSeedIsReproducible(t *testing.T) {
	schema := Schema{"properties": map[string]any{"name": map[string]any{"type": "string"}, "n": map[string]any{"type": "integer"}}}
	a, _ := NewSynthesizer(42).Synthesize(schema, nil)
	b, _ := NewSynthesizer(42).Synthesize(schema, nil)
	assert.Equal(t, a, b)
}

func TestExtractExample(t *testing.T) {
	got, gaps := NewExtractor().Extract(Schema{"example": map[string]any{"status": "ok"}}, nil)
	assert.Empty(t, gaps)
	assert.Equal(t, map[string]any{"status": "ok"}, got)
}

func TestExtractExampleWinsOverProperties(t *testing.T) {
	schema := Schema{"example": "literal", "properties": map[string]any{"a": map[string]any{"type": "string"}}}
	got, _ := NewExtractor().Extract(schema, nil)
	assert.Equal(t, "literal", got)
}

func TestExtractPlaceholders(t *testing.T) {
	schema := Schema{"properties": map[string]any{
		"id":   map[string]any{"type": "integer"},
		"name": map[string]any{"type": "string"},
		"blob": map[string]any{},
	}}
	got, _ := NewExtractor().Extract(schema, nil)
	assert.Equal(t, map[string]any{"id": "<integer>", "name": "<string>", "blob": "<any>"}, got)
}

func TestExtractRegisteredPlaceholder(t *testing.T) {
	e := NewExtractor()
	e.Register("string", "{{string}}")
	got, _ := e.Extract(Schema{"properties": map[string]any{"name": map[string]any{"type": "string"}}}, nil)
	assert.Equal(t, map[string]any{"name": "{{string}}"}, got)
}

func TestExtractFallsBackToSchema(t *testing.T) {
	schema := Schema{"type": "array", "items": map[string]any{"type": "string"}}
	got, _ := NewExtractor().Extract(schema, nil)
	assert.Equal(t, schema, got)
}

func TestExtractResolvesRefToExample(t *testing.T) {
	reg := Registry{"Health": Schema{"example": map[string]any{"status": "ok"}}}
	got, gaps := NewExtractor().Extract(Schema{"$ref": "#/components/schemas/Health"}, reg)
	assert.Empty(t, gaps)
	assert.Equal(t, map[string]any{"status": "ok"}, got)
}

const petstoreJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "pets", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "post": {
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/NewPet"}}}},
        "responses": {
          "201": {"description": "created", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
          "400": {"description": "bad"}
        }
      },
      "get": {
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"example": [{"id": 1}]}}}},
          "default": {"description": "error"}
        }
      }
    },
    "/health": {
      "get": {
        "responses": {"200": {"description": "ok", "content": {"application/json": {"schema": {"example": {"status": "ok"}}}}}}
      }
    }
  },
  "components": {
    "schemas": {
      "NewPet": {"type": "object", "properties": {"name": {"type": "string"}, "age": {"type": "integer"}}},
      "Pet": {"type": "object", "properties": {"id": {"type": "integer"}, "name": {"type": "string"}}}
    }
  }
}`

const petstoreYAML = `
openapi: 3.0.3
info:
  title: pets
  version: 1.0.0
paths:
  /health:
    get:
      responses:
        200:
          description: ok
          content:
            application/json:
              schema:
                example:
                  status: ok
components:
  schemas: {}
`

func TestParseJSONAndYAML(t *testing.T) {
	doc, err := Parse([]byte(petstoreJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"/health", "/pets"}, doc.SortedPaths())
	assert.Len(t, doc.Components.Schemas, 2)

	yamlDoc, err := Parse([]byte(petstoreYAML))
	require.NoError(t, err)
	op := yamlDoc.Paths["/health"].Get
	require.NotNil(t, op)
	codes := op.SuccessResponses()
	require.Len(t, codes, 1)
	assert.Equal(t, 200, codes[0].Code)
	example, ok := codes[0].Response.ResponseSchema().Example()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"status": "ok"}, example)
}

func TestParseKeepsLargeExampleIntegers(t *testing.T) {
	const jsonDoc = `{"paths":{"/ids":{"get":{"responses":{"200":{"content":{"application/json":{"schema":{"example":{"id":9007199254740993}}}}}}}}}}`
	const yamlDoc = `
paths:
  /ids:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                example:
                  id: 9007199254740993
`
	for name, raw := range map[string]string{"json": jsonDoc, "yaml": yamlDoc} {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(raw))
			require.NoError(t, err)
			tests, _, err := NewBuilder("http://svc", nil, nil).Build(doc)
			require.NoError(t, err)
			require.Len(t, tests, 1)
			assert.Equal(t, `{"id":9007199254740993}`, string(tests[0].ExpectedResponse))
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"paths":{}} {"paths":{}}`))
	assert.ErrorIs(t, err, ErrInvalidContract)
	_, err = Parse([]byte("   "))
	assert.ErrorIs(t, err, ErrInvalidContract)
	_, err = Parse([]byte(`{"paths": [`))
	assert.ErrorIs(t, err, ErrInvalidContract)
	_, err = Parse([]byte("paths: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestBuildProducesOneCasePerSuccessCode(t *testing.T) {
	doc, err := Parse([]byte(petstoreJSON))
	require.NoError(t, err)
	tests, gaps, err := NewBuilder("", NewSynthesizer(5), NewExtractor()).Build(doc)
	require.NoError(t, err)
	assert.Empty(t, gaps)
	require.Len(t, tests, 3)

	assert.Equal(t, "http://127.0.0.1:8000/health", tests[0].URL)
	assert.Equal(t, "GET", tests[0].Method)
	assert.Nil(t, tests[0].Payload)
	assert.JSONEq(t, `{"status":"ok"}`, string(tests[0].ExpectedResponse))

	assert.Equal(t, "GET", tests[1].Method)
	assert.Equal(t, "http://127.0.0.1:8000/pets", tests[1].URL)
	assert.JSONEq(t, `[{"id":1}]`, string(tests[1].ExpectedResponse))

	post := tests[2]
	assert.Equal(t, "POST", post.Method)
	assert.Equal(t, 201, post.ExpectedStatusCode)
	assert.Nil(t, post.DependencyID)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(post.Payload, &payload))
	assert.Len(t, payload, 2)
	assert.IsType(t, "", payload["name"])
	assert.IsType(t, float64(0), payload["age"])
	assert.JSONEq(t, `{"id":"<integer>","name":"<string>"}`, string(post.ExpectedResponse))
}

func TestBuildUsesBaseURLAndLocatesGaps(t *testing.T) {
	doc := &Document{
		Paths: map[string]PathItem{
			"/things": {Post: &Operation{
				RequestBody: &RequestBody{Content: map[string]MediaType{"application/json": {Schema: Schema{"$ref": "#/components/schemas/Missing"}}}},
				Responses:   map[string]Response{"204": {}},
			}},
		},
		Components: Components{Schemas: Registry{}},
	}
	tests, gaps, err := NewBuilder("https://api.example.com/", nil, nil).Build(doc)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "https://api.example.com/things", tests[0].URL)
	assert.JSONEq(t, `{}`, string(tests[0].Payload))
	assert.JSONEq(t, `{}`, string(tests[0].ExpectedResponse))
	require.Len(t, gaps, 1)
	assert.Equal(t, GapUnresolvedRef, gaps[0].Kind)
	assert.Equal(t, "POST /things request", gaps[0].Location)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(context.Background(), []byte(petstoreJSON)))
	err := Validate(context.Background(), []byte(`{"openapi": "3.0.3", "paths": {}}`))
	assert.ErrorIs(t, err, ErrInvalidContract)
}
