// File: internal/listing/search_index.go
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	platformElasticsearch "shoe_market_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchIndex resolves free text to shoe ids. Filters and sort are still
// applied in SQL on the returned ids.
type SearchIndex interface {
	Index(ctx context.Context, shoe *Shoe) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error
	Search(ctx context.Context, text string, limit int) (SearchHits, error)
}

// SearchHits is one page of index matches. Complete is false when more
// documents matched than were returned; the ids are then not the whole
// result set and must not be used as a filter.
type SearchHits struct {
	IDs      []uuid.UUID
	Total    int64
	Complete bool
}

// maxSearchHits caps how many ids one free-text query can resolve to.
const maxSearchHits = 500

// ESIndex is the Elasticsearch-backed SearchIndex.
type ESIndex struct {
	client  *platformElasticsearch.ESClientWrapper
	index   string
	refresh string
	logger  *zap.Logger
	now     func() time.Time
}

// NewESIndex returns nil when client is nil, leaving search on the database.
func NewESIndex(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) *ESIndex {
	if client == nil {
		return nil
	}
	return &ESIndex{
		client: client,
		index:  platformElasticsearch.ShoesIndexName,
		logger: logger.Named("ShoeSearchIndex"),
		now:    time.Now,
	}
}

// WithRefresh sets the refresh policy sent with writes ("true", "wait_for", "").
func (e *ESIndex) WithRefresh(refresh string) *ESIndex {
	e.refresh = refresh
	return e
}

// shoeDocument converts a shoe to its index document. Seller should be
// preloaded. indexed_at lets a full sync find documents it did not rewrite.
func shoeDocument(s *Shoe, indexedAt time.Time) ([]byte, error) {
	doc := map[string]interface{}{
		"title":       s.Title,
		"description": s.Description,
		"brand":       s.Brand,
		"slug":        s.Slug,
		"seller_id":   s.SellerID.String(),
		"condition":   string(s.Condition),
		"currency":    s.Currency,
		"size":        s.Size.InexactFloat64(),
		"price":       s.Price.InexactFloat64(),
		"views":       s.Views,
		"is_sold":     s.IsSold,
		"created_at":  s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  s.UpdatedAt.UTC().Format(time.RFC3339),
		"indexed_at":  indexedAt.UnixMilli(),
	}
	if s.Seller != nil {
		doc["seller_username"] = s.Seller.Username
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error marshalling shoe to JSON for ES: %w", err)
	}
	return body, nil
}

func (e *ESIndex) Index(ctx context.Context, shoe *Shoe) error {
	body, err := shoeDocument(shoe, e.now())
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: shoe.ID.String(),
		Body:       bytes.NewReader(body),
		Refresh:    e.refresh,
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return fmt.Errorf("failed to index shoe %s: %w", shoe.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index error for shoe %s: %s", shoe.ID, res.Status())
	}
	return nil
}

func (e *ESIndex) Delete(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      e.index,
		DocumentID: id.String(),
		Refresh:    e.refresh,
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return fmt.Errorf("failed to delete shoe %s from index: %w", id, err)
	}
	defer res.Body.Close()
	// A missing document is already the desired state.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete error for shoe %s: %s", id, res.Status())
	}
	return nil
}

// DeleteBySeller removes every document of one seller, used when the
// account and its shoes are deleted together.
func (e *ESIndex) DeleteBySeller(ctx context.Context, sellerID uuid.UUID) error {
	deleted, err := e.deleteByQuery(ctx, map[string]interface{}{
		"term": map[string]interface{}{"seller_id": sellerID.String()},
	})
	if err != nil {
		return fmt.Errorf("failed to delete shoes of seller %s from index: %w", sellerID, err)
	}
	e.logger.Info("Removed seller shoes from index", zap.String("sellerID", sellerID.String()), zap.Int64("deleted", deleted))
	return nil
}

type deleteByQueryResponse struct {
	Deleted int64 `json:"deleted"`
}

// deleteByQuery skips version conflicts: a document rewritten while the
// query runs is newer than the snapshot it matched and must survive.
func (e *ESIndex) deleteByQuery(ctx context.Context, query map[string]interface{}) (int64, error) {
	body, err := json.Marshal(map[string]interface{}{"query": query})
	if err != nil {
		return 0, fmt.Errorf("error marshalling delete query: %w", err)
	}
	req := esapi.DeleteByQueryRequest{
		Index:     []string{e.index},
		Body:      bytes.NewReader(body),
		Conflicts: "proceed",
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch delete_by_query error: %s", res.Status())
	}
	var parsed deleteByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode delete_by_query response: %w", err)
	}
	return parsed.Deleted, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a fuzzy multi_match over title, brand and description and
// returns at most limit ids together with the exact match count.
func (e *ESIndex) Search(ctx context.Context, text string, limit int) (SearchHits, error) {
	query := map[string]interface{}{
		"_source":          false,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"title^3", "brand^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return SearchHits{}, fmt.Errorf("error marshalling search query: %w", err)
	}
	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return SearchHits{}, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return SearchHits{}, fmt.Errorf("elasticsearch search error: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return SearchHits{}, fmt.Errorf("failed to decode search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			e.logger.Warn("Skipping search hit with non-uuid id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	returned := int64(len(parsed.Hits.Hits))
	return SearchHits{
		IDs:      ids,
		Total:    max(parsed.Hits.Total.Value, returned),
		Complete: parsed.Hits.Total.Relation != "gte" && parsed.Hits.Total.Value <= returned,
	}, nil
}

// SyncResult summarizes a bulk reindex. Pruned counts documents whose shoe
// no longer exists in the database.
type SyncResult struct {
	Synced  int
	Failed  int
	Batches int
	Pruned  int64
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error,omitempty"`
	} `json:"items"`
}

// SyncAll pages every shoe out of repo and bulk-indexes it in batches, then
// prunes documents the run did not rewrite. Pruning is skipped when any
// document failed, since a failed shoe would look deleted.
func (e *ESIndex) SyncAll(ctx context.Context, repo Repository, batchSize int) (SyncResult, error) {
	var result SyncResult
	if batchSize <= 0 {
		batchSize = 100
	}
	started := e.now()
	e.logger.Info("Starting shoe synchronization to Elasticsearch", zap.Int("batchSize", batchSize))

	for offset := 0; ; {
		shoes, err := repo.FindAllForSync(ctx, offset, batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to fetch batch %d: %w", result.Batches+1, err)
		}
		if len(shoes) == 0 {
			break
		}
		result.Batches++
		offset += len(shoes)

		synced, failed := e.bulkIndex(ctx, shoes, result.Batches)
		result.Synced += synced
		result.Failed += failed
	}

	if result.Failed > 0 {
		e.logger.Warn("Skipping prune of stale documents after failed sync", zap.Int("failed", result.Failed))
	} else {
		pruned, err := e.pruneOlderThan(ctx, started)
		if err != nil {
			return result, fmt.Errorf("failed to prune stale documents: %w", err)
		}
		result.Pruned = pruned
	}

	e.logger.Info("Shoe synchronization finished",
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Int("batches", result.Batches),
		zap.Int64("pruned", result.Pruned))
	return result, nil
}

// pruneOlderThan refreshes the index so every document written by the run
// is searchable, then deletes the ones indexed before it started. Documents
// without indexed_at predate the field and are stale too.
func (e *ESIndex) pruneOlderThan(ctx context.Context, started time.Time) (int64, error) {
	refresh := esapi.IndicesRefreshRequest{Index: []string{e.index}}
	res, err := refresh.Do(ctx, e.client.Client)
	if err != nil {
		return 0, err
	}
	res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch refresh error: %s", res.Status())
	}
	return e.deleteByQuery(ctx, map[string]interface{}{
		"bool": map[string]interface{}{
			"must_not": map[string]interface{}{
				"range": map[string]interface{}{
					"indexed_at": map[string]interface{}{"gte": started.UnixMilli()},
				},
			},
		},
	})
}

func (e *ESIndex) bulkIndex(ctx context.Context, shoes []Shoe, batch int) (synced, failed int) {
	var body strings.Builder
	ids := make([]string, 0, len(shoes))
	indexedAt := e.now()
	for i := range shoes {
		doc, err := shoeDocument(&shoes[i], indexedAt)
		if err != nil {
			e.logger.Error("Failed to convert shoe to document", zap.String("shoeID", shoes[i].ID.String()), zap.Error(err))
			failed++
			continue
		}
		ids = append(ids, shoes[i].ID.String())
		fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", e.index, shoes[i].ID.String())
		body.Write(doc)
		body.WriteString("\n")
	}
	if len(ids) == 0 {
		return 0, failed
	}

	req := esapi.BulkRequest{
		Body:    strings.NewReader(body.String()),
		Refresh: e.refresh,
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		e.logger.Error("Failed to send bulk request", zap.Int("batch", batch), zap.Error(err))
		return 0, failed + len(ids)
	}
	defer res.Body.Close()
	if res.IsError() {
		e.logger.Error("Bulk request returned an error", zap.Int("batch", batch), zap.String("status", res.Status()))
		return 0, failed + len(ids)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		e.logger.Error("Failed to parse bulk response", zap.Int("batch", batch), zap.Error(err))
		return 0, failed + len(ids)
	}
	if !parsed.Errors {
		return len(ids), failed
	}
	for i, item := range parsed.Items {
		action, ok := item["index"]
		if ok && len(action.Error) == 0 && action.Status < 300 {
			synced++
			continue
		}
		shoeID := "unknown"
		if i < len(ids) {
			shoeID = ids[i]
		}
		e.logger.Error("Failed to index document in bulk batch",
			zap.String("shoeID", shoeID),
			zap.ByteString("error", action.Error))
		failed++
	}
	return synced, failed
}

// ProvideSearchIndex adapts NewESIndex for injection: without a client the
// returned interface is a true nil so the service uses the database.
func ProvideSearchIndex(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) SearchIndex {
	if idx := NewESIndex(client, logger); idx != nil {
		return idx
	}
	return nil
}
