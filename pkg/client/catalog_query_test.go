package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogQueryMetadata(t *testing.T) {
	fake := newFakeHTTP(jsonReply(http.StatusOK, `{"results":[{"key":"fakeX"}]}`))
	c, _ := newTestClient(t, fake)

	query := CatalogQuery{ID: 7, ContentFilter: ContentFilter{"content_type": "course"}}
	meta, err := LoadCatalogQueryMetadata(context.Background(), c, query)
	require.NoError(t, err)

	assert.Equal(t, []string{"fakeX"}, recordKeys(t, meta.Metadata()))
	assert.Equal(t, query.ContentFilter, fake.Calls()[0].Body)
}

func TestGetMetadataByQuery_Error(t *testing.T) {
	fake := newFakeHTTP(errReply(chunkedEncodingError{}))
	c, _ := newTestClient(t, fake)
	c.config.MaxRetries = 0

	_, err := c.GetMetadataByQuery(context.Background(), CatalogQuery{ID: 42})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog query 42")

	var target chunkedEncodingError
	assert.ErrorAs(t, err, &target)
}

func TestCatalogQueryMetadata_EmptyNeverNil(t *testing.T) {
	meta := &CatalogQueryMetadata{}
	assert.NotNil(t, meta.Metadata())
	assert.Empty(t, meta.Metadata())
}
