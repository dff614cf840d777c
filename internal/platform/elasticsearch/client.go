package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"shoe_market_backend/internal/config"
)

const (
	pingTimeout = 10 * time.Second
	maxRetries  = 5
)

// ESClientWrapper gives Wire a local type for the shared client.
type ESClientWrapper struct {
	*elasticsearch.Client
}

// roundTripLogger reports every transport round trip at debug level.
type roundTripLogger struct {
	logger *zap.Logger
}

var _ elastictransport.Logger = (*roundTripLogger)(nil)

func (l *roundTripLogger) LogRoundTrip(req *http.Request, res *http.Response, err error, _ time.Time, dur time.Duration) error {
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("duration", dur),
	}
	if res != nil {
		fields = append(fields, zap.Int("status_code", res.StatusCode))
	}
	if err != nil {
		l.logger.Warn("Elasticsearch request failed", append(fields, zap.Error(err))...)
		return nil
	}
	l.logger.Debug("Elasticsearch request", fields...)
	return nil
}

func (l *roundTripLogger) RequestBodyEnabled() bool  { return false }
func (l *roundTripLogger) ResponseBodyEnabled() bool { return false }

// NewClient connects to ELASTICSEARCH_URL and checks the cluster answers.
// Search is optional: without a URL it returns (nil, nil) and listing
// search falls back to the database.
func NewClient(cfg *config.Config, logger *zap.Logger) (*ESClientWrapper, error) {
	if strings.TrimSpace(cfg.ElasticsearchURL) == "" {
		logger.Info("ELASTICSEARCH_URL not set, search will use the database")
		return nil, nil
	}

	esClient, err := elasticsearch.NewClient(clientConfig(cfg, logger.Named("elasticsearch_client")))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	version, err := clusterVersion(ctx, esClient)
	if err != nil {
		logger.Error("Elasticsearch is not reachable", zap.String("url", cfg.ElasticsearchURL), zap.Error(err))
		return nil, err
	}

	logger.Info("Elasticsearch client connected",
		zap.String("url", cfg.ElasticsearchURL),
		zap.String("cluster_version", version),
		zap.String("client_version", elasticsearch.Version))
	return &ESClientWrapper{Client: esClient}, nil
}

func clientConfig(cfg *config.Config, logger *zap.Logger) elasticsearch.Config {
	return elasticsearch.Config{
		Addresses: []string{cfg.ElasticsearchURL},
		Username:  cfg.ElasticsearchUsername,
		Password:  cfg.ElasticsearchPassword,
		Logger:    &roundTripLogger{logger: logger},
		// Back off on throttling and on gateway errors in front of the cluster.
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		RetryBackoff:  func(attempt int) time.Duration { return time.Duration(attempt) * 100 * time.Millisecond },
		MaxRetries:    maxRetries,
	}
}

type infoResponse struct {
	Version struct {
		Number string `json:"number"`
	} `json:"version"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// clusterVersion calls the root info endpoint and returns the server version.
func clusterVersion(ctx context.Context, es *elasticsearch.Client) (string, error) {
	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e errorResponse
		if decodeErr := json.NewDecoder(res.Body).Decode(&e); decodeErr != nil || e.Error.Reason == "" {
			return "", fmt.Errorf("elasticsearch info: %s", res.Status())
		}
		return "", fmt.Errorf("elasticsearch info: %s: %s: %s", res.Status(), e.Error.Type, e.Error.Reason)
	}

	var info infoResponse
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decoding elasticsearch info: %w", err)
	}
	return info.Version.Number, nil
}
