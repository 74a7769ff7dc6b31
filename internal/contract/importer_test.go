package contract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "apitest-backend"
	"apitest-backend/internal/bus"
)

func TestImportUpsertsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryCatalog()
	events := &bus.Recorder{}
	importer := NewImporter(store, NewBuilder("", NewSynthesizer(9), NewExtractor()), events, nil)

	first, err := importer.Import(ctx, []byte(petstoreJSON), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, first.Tests, 3)

	second, err := importer.Import(ctx, []byte(petstoreJSON), ImportOptions{})
	require.NoError(t, err)
	for i := range first.Tests {
		assert.Equal(t, first.Tests[i].ID, second.Tests[i].ID, "re-import keeps ids")
	}

	page, err := store.List(ctx, catalog.ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)

	assert.Equal(t, []string{bus.SubjectTestCasesImported, bus.SubjectTestCasesImported}, events.Subjects())
	var evt map[string]any
	require.NoError(t, json.Unmarshal(events.Events()[0].Data, &evt))
	assert.EqualValues(t, 3, evt["count"])
}

func TestImportOverridesBaseURL(t *testing.T) {
	store := catalog.NewMemoryCatalog()
	importer := NewImporter(store, NewBuilder("", nil, nil), nil, nil)
	res, err := importer.Import(context.Background(), []byte(petstoreYAML), ImportOptions{BaseURL: "http://svc:9000"})
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.Equal(t, "http://svc:9000/health", res.Tests[0].URL)
	assert.Equal(t, "", importer.Builder.BaseURL, "override must not leak into the shared builder")
}

func TestImportStrictRejectsInvalidContract(t *testing.T) {
	store := catalog.NewMemoryCatalog()
	importer := NewImporter(store, NewBuilder("", nil, nil), nil, nil)
	_, err := importer.Import(context.Background(), []byte(`{"openapi": "3.0.3", "paths": {}}`), ImportOptions{Strict: true})
	assert.ErrorIs(t, err, ErrInvalidContract)

	page, err := store.List(context.Background(), catalog.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
