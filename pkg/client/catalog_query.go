package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// CatalogQuery identifies a stored content filter.
type CatalogQuery struct {
	ID            int
	ContentFilter ContentFilter
}

// GetMetadataByQuery returns the search-all results for the query's content filter.
func (c *Client) GetMetadataByQuery(ctx context.Context, query CatalogQuery) ([]json.RawMessage, error) {
	records, err := c.FetchSearch(ctx, query.ContentFilter, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog query %d: %w", query.ID, err)
	}
	return records, nil
}

// CatalogQueryMetadata holds the metadata fetched for one catalog query.
type CatalogQueryMetadata struct {
	Query    CatalogQuery
	metadata []json.RawMessage
}

// LoadCatalogQueryMetadata fetches the metadata for query.
func LoadCatalogQueryMetadata(ctx context.Context, c *Client, query CatalogQuery) (*CatalogQueryMetadata, error) {
	records, err := c.GetMetadataByQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return &CatalogQueryMetadata{Query: query, metadata: records}, nil
}

// Metadata returns the fetched records. Empty, never nil.
func (m *CatalogQueryMetadata) Metadata() []json.RawMessage {
	if m.metadata == nil {
		return []json.RawMessage{}
	}
	return m.metadata
}
