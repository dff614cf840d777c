package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ShoesIndexName = "shoes"

// defineShoesMapping returns the JSON string for the shoes index mapping.
func defineShoesMapping() (string, error) {
	keywordSubfield := map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":           map[string]interface{}{"type": "text"},
				"description":     map[string]interface{}{"type": "text"},
				"brand":           map[string]interface{}{"type": "text", "fields": keywordSubfield},
				"slug":            map[string]interface{}{"type": "keyword"},
				"seller_id":       map[string]interface{}{"type": "keyword"},
				"seller_username": map[string]interface{}{"type": "keyword"},
				"condition":       map[string]interface{}{"type": "keyword"},
				"currency":        map[string]interface{}{"type": "keyword"},
				"size":            map[string]interface{}{"type": "scaled_float", "scaling_factor": 10},
				"price":           map[string]interface{}{"type": "scaled_float", "scaling_factor": 100},
				"views":           map[string]interface{}{"type": "long"},
				"is_sold":         map[string]interface{}{"type": "boolean"},
				"created_at":      map[string]interface{}{"type": "date"},
				"updated_at":      map[string]interface{}{"type": "date"},
				"indexed_at":      map[string]interface{}{"type": "date", "format": "epoch_millis"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling shoes mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateShoesIndexIfNotExists creates the shoes index with the defined mapping
// if it does not already exist.
func CreateShoesIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{
		Index: []string{ShoesIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if shoes index exists", zap.Error(err))
		return fmt.Errorf("error checking if shoes index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Shoes index already exists", zap.String("index_name", ShoesIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Error checking if shoes index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", ShoesIndexName),
		)
		return fmt.Errorf("error checking if shoes index exists: status %s", res.Status())
	}

	mappingJSON, err := defineShoesMapping()
	if err != nil {
		log.Error("Failed to define shoes mapping", zap.Error(err))
		return err
	}

	createReq := esapi.IndicesCreateRequest{
		Index: ShoesIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating shoes index", zap.Error(err), zap.String("index_name", ShoesIndexName))
		return fmt.Errorf("error creating shoes index %s: %w", ShoesIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := json.NewDecoder(createRes.Body).Decode(&errorBody); err != nil {
			log.Error("Failed to parse shoes index creation error response body", zap.Error(err), zap.String("status", createRes.Status()))
		} else {
			log.Error("Failed to create shoes index",
				zap.String("status", createRes.Status()),
				zap.Any("error_details", errorBody),
				zap.String("index_name", ShoesIndexName),
			)
		}
		return fmt.Errorf("failed to create shoes index %s: status %s", ShoesIndexName, createRes.Status())
	}

	log.Info("Shoes index created successfully", zap.String("index_name", ShoesIndexName))
	return nil
}
