package capability

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
)

// GroundedSearch is the web grounding capability. It is available when a
// search backend endpoint and key are configured.
type GroundedSearch struct {
	endpoint string
	apiKey   string
	log      zerolog.Logger
}

// NewGroundedSearch creates the web grounding capability from its backend
// settings.
func NewGroundedSearch(endpoint, apiKey string) *GroundedSearch {
	return &GroundedSearch{
		endpoint: endpoint,
		apiKey:   apiKey,
		log:      logx.Component("grounded-search"),
	}
}

// Acquire returns a handle when the grounding backend is configured, nil
// otherwise. Callers that require grounding must treat nil as construction
// failure, not as a degraded mode.
func (g *GroundedSearch) Acquire(ctx context.Context) *SearchHandle {
	if g == nil || g.endpoint == "" || g.apiKey == "" {
		return nil
	}
	return &SearchHandle{
		Name:     "grounded search",
		Endpoint: g.endpoint,
	}
}

// DocumentSearch is the enterprise document retrieval capability, backed by
// a vector store on the execution backend.
type DocumentSearch struct {
	client  *openai.Client
	storeID string
	// storeName finds the store by name when no ID is configured.
	storeName string
	log       zerolog.Logger
}

// NewDocumentSearch creates the document search capability. The client is
// shared with the execution client; either a store ID or a store name must
// be configured for the capability to resolve.
func NewDocumentSearch(client *openai.Client, storeID, storeName string) *DocumentSearch {
	return &DocumentSearch{
		client:    client,
		storeID:   storeID,
		storeName: storeName,
		log:       logx.Component("document-search"),
	}
}

// Acquire verifies the configured vector store against the backend and
// returns a handle for it, or nil when the store is unconfigured, missing,
// or unreachable. The verification failure is logged here; the caller only
// sees availability.
func (d *DocumentSearch) Acquire(ctx context.Context) *SearchHandle {
	if d == nil || d.client == nil {
		return nil
	}
	if d.storeID == "" && d.storeName == "" {
		return nil
	}

	if d.storeID != "" {
		vs, err := d.client.VectorStores.Get(ctx, d.storeID)
		if err != nil {
			d.log.Warn().Err(err).Str("vector_store_id", d.storeID).Msg("vector store unavailable")
			return nil
		}
		return d.handleFor(vs)
	}

	iter := d.client.VectorStores.ListAutoPaging(ctx, openai.VectorStoreListParams{
		Limit: openai.Int(100),
	})
	for iter.Next() {
		vs := iter.Current()
		if vs.Name == d.storeName {
			return d.handleFor(&vs)
		}
	}
	if err := iter.Err(); err != nil {
		d.log.Warn().Err(err).Str("vector_store_name", d.storeName).Msg("vector store lookup failed")
		return nil
	}

	d.log.Warn().Str("vector_store_name", d.storeName).Msg("no vector store with that name")
	return nil
}

func (d *DocumentSearch) handleFor(vs *openai.VectorStore) *SearchHandle {
	if vs.Status == openai.VectorStoreStatusExpired {
		d.log.Warn().Str("vector_store_id", vs.ID).Msg("vector store has expired")
		return nil
	}
	return &SearchHandle{
		Name:           "document search",
		VectorStoreIDs: []string{vs.ID},
	}
}
