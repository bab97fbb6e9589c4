package main

import (
	"context"
	"testing"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/enrichment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGraph_NoSeedFileStillResolvesConcepts(t *testing.T) {
	ctx := context.Background()

	store, err := loadGraph(ctx, "")
	require.NoError(t, err)

	concepts, err := enrichment.ResolveConcepts(ctx, store)
	require.NoError(t, err)
	assert.NotEqual(t, concepts.City, concepts.Date)
	assert.Len(t, store.Snapshot(), 5)

	// With no cities in the graph a request fails as missing input.
	_, err = enrichment.NewFinder(store, concepts).Resolve(ctx, domain.Request{InputStructure: "x"})
	require.Error(t, err)
}

func TestLoadGraph_SeedFile(t *testing.T) {
	ctx := context.Background()

	store, err := loadGraph(ctx, "../../internal/enrichment/testdata/minsk.yaml")
	require.NoError(t, err)
	_, err = store.FindByIdentifier(ctx, "Minsk")
	require.NoError(t, err)

	_, err = loadGraph(ctx, "testdata/missing.yaml")
	require.Error(t, err)
}
