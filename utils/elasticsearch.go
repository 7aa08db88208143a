package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const ClientsIndex = "clients"

type ElasticsearchClient interface {
	IndexDocument(ctx context.Context, index string, id string, document interface{}) error
	Search(ctx context.Context, index string, query map[string]interface{}) ([]json.RawMessage, error)
	DeleteDocument(ctx context.Context, index string, id string) error
	Close() error
}

type elasticsearchClient struct {
	client *elasticsearch.Client
}

func NewElasticsearchClient(url string) (ElasticsearchClient, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{url},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch ping error: %s", res.Status())
	}

	return &elasticsearchClient{client: es}, nil
}

func (e *elasticsearchClient) Close() error {
	return nil
}

func (e *elasticsearchClient) IndexDocument(ctx context.Context, index string, id string, document interface{}) error {
	jsonDoc, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(jsonDoc),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("Elasticsearch error: %s", res.String())
	}

	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns the _source of every hit, in ranking order.
func (e *elasticsearchClient) Search(ctx context.Context, index string, query map[string]interface{}) ([]json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(&buf),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch error: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]json.RawMessage, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		results = append(results, hit.Source)
	}
	return results, nil
}

func (e *elasticsearchClient) DeleteDocument(ctx context.Context, index string, id string) error {
	req := esapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    "true",
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("Elasticsearch error: %s", res.String())
	}

	return nil
}

// ClientSearchQuery mirrors the database client search: "first last" must
// match both names, a single word matches either name or the telephone.
func ClientSearchQuery(query string, size int) map[string]interface{} {
	query = strings.TrimSpace(query)

	var boolQuery map[string]interface{}
	if first, last, ok := strings.Cut(query, " "); ok {
		boolQuery = map[string]interface{}{
			"must": []interface{}{
				containsQuery("first_name", first),
				containsQuery("last_name", last),
			},
		}
	} else {
		boolQuery = map[string]interface{}{
			"should": []interface{}{
				containsQuery("first_name", query),
				containsQuery("last_name", query),
				containsQuery("telephone_number", query),
			},
			"minimum_should_match": 1,
		}
	}

	return map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"first_name.keyword": "asc"},
			map[string]interface{}{"last_name.keyword": "asc"},
		},
	}
}

func containsQuery(field, value string) map[string]interface{} {
	escaped := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`).Replace(value)
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field + ".keyword": map[string]interface{}{
				"value":            "*" + escaped + "*",
				"case_insensitive": true,
			},
		},
	}
}
