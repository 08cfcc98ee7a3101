// Package indexer writes normalized records to OpenSearch with the bulk API.
package indexer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/telhawk-systems/lognorm/internal/logging"
	"github.com/telhawk-systems/lognorm/internal/model"
)

// ErrPartialFailure is returned by Send when some documents were rejected.
var ErrPartialFailure = errors.New("some records were not indexed")

// Config holds OpenSearch connection and index configuration
type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
	ShardCount    int
	ReplicaCount  int
	FlushBytes    int
}

// DefaultConfig returns sensible defaults for OpenSearch configuration
func DefaultConfig() Config {
	return Config{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "admin",
		TLSSkipVerify: true,
		IndexPrefix:   "lognorm",
		ShardCount:    1,
		ReplicaCount:  0,
		FlushBytes:    5 * 1024 * 1024,
	}
}

// IndexResponse reports the outcome of one bulk run.
type IndexResponse struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// document is the indexed shape of a record.
type document struct {
	model.LogRecord
	EventTime time.Time `json:"@timestamp"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Client indexes records into <prefix>-uploads.
type Client struct {
	osClient *opensearch.Client
	config   Config
	logger   *logging.Logger

	mu          sync.Mutex
	initialized bool
}

// NewClient creates an OpenSearch client. It does not contact the cluster.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = DefaultConfig().IndexPrefix
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for self-signed dev clusters
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{
		osClient: client,
		config:   cfg,
		logger:   logger.With(logging.Component("indexer")),
	}, nil
}

// IndexName returns the index uploads are written to.
func (c *Client) IndexName() string {
	return c.config.IndexPrefix + "-uploads"
}

// Name identifies the sink.
func (c *Client) Name() string {
	return "opensearch"
}

// Initialize verifies the connection and creates the index when missing.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	info, err := c.osClient.Info(c.osClient.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	if err := c.ensureIndex(ctx); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	c.initialized = true
	c.logger.InfoContext(ctx, "opensearch initialized", "index", c.IndexName())
	return nil
}

func (c *Client) ensureIndex(ctx context.Context) error {
	indexName := c.IndexName()

	exists, err := c.osClient.Indices.Exists([]string{indexName}, c.osClient.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer exists.Body.Close()

	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   c.config.ShardCount,
			"number_of_replicas": c.config.ReplicaCount,
		},
		"mappings": recordMappings(),
	})
	if err != nil {
		return err
	}

	res, err := c.osClient.Indices.Create(
		indexName,
		c.osClient.Indices.Create.WithBody(bytes.NewReader(body)),
		c.osClient.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s - %s", res.Status(), string(bodyBytes))
	}
	return nil
}

func recordMappings() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	return map[string]interface{}{
		"properties": map[string]interface{}{
			"@timestamp":  map[string]interface{}{"type": "date"},
			"timestamp":   map[string]interface{}{"type": "date"},
			"indexed_at":  map[string]interface{}{"type": "date"},
			"id":          keyword,
			"seq":         map[string]interface{}{"type": "integer"},
			"event_type":  keyword,
			"severity":    keyword,
			"source":      keyword,
			"description": map[string]interface{}{"type": "text"},
			"status_code": map[string]interface{}{"type": "integer"},
			"user_agent":  map[string]interface{}{"type": "text"},
			"bytes":       map[string]interface{}{"type": "long"},
			"is_uploaded": map[string]interface{}{"type": "boolean"},
		},
	}
}

// Index bulk-indexes records using their IDs as document IDs.
func (c *Client) Index(ctx context.Context, records []model.LogRecord) (*IndexResponse, error) {
	if c == nil || c.osClient == nil {
		return nil, fmt.Errorf("opensearch client not initialized")
	}

	resp := &IndexResponse{}
	if len(records) == 0 {
		return resp, nil
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:     c.osClient,
		Index:      c.IndexName(),
		FlushBytes: c.config.FlushBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var (
		indexed, failed atomic.Int64
		errMu           sync.Mutex
	)
	addError := func(msg string) {
		errMu.Lock()
		resp.Errors = append(resp.Errors, msg)
		errMu.Unlock()
	}

	now := time.Now().UTC()
	for _, rec := range records {
		data, err := json.Marshal(document{LogRecord: rec, EventTime: rec.Timestamp, IndexedAt: now})
		if err != nil {
			failed.Add(1)
			addError(fmt.Sprintf("failed to marshal record %s: %v", rec.ID, err))
			continue
		}

		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: rec.ID,
			Body:       bytes.NewReader(data),
			OnSuccess: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem) {
				indexed.Add(1)
			},
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					addError(fmt.Sprintf("%s: %v", item.DocumentID, err))
				} else {
					addError(fmt.Sprintf("%s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason))
				}
			},
		})
		if err != nil {
			failed.Add(1)
			addError(fmt.Sprintf("failed to add to bulk indexer: %v", err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		return nil, fmt.Errorf("bulk indexer close: %w", err)
	}

	resp.Indexed = int(indexed.Load())
	resp.Failed = int(failed.Load())
	return resp, nil
}

// Send indexes a batch and fails when any record is rejected.
func (c *Client) Send(ctx context.Context, records []model.LogRecord) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	resp, err := c.Index(ctx, records)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "records indexed",
		"index", c.IndexName(),
		"indexed", resp.Indexed,
		"failed", resp.Failed,
	)

	if resp.Failed > 0 {
		return fmt.Errorf("%w: %d of %d failed (first: %s)", ErrPartialFailure, resp.Failed, len(records), firstError(resp.Errors))
	}
	return nil
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return "unknown"
	}
	return errs[0]
}
