package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	elastic "github.com/elastic/go-elasticsearch/v8"
	"github.com/tidwall/gjson"

	"github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/domain"
)

const entityMapping = `{
	"mappings": {
		"properties": {
			"case_id":         {"type": "long"},
			"generation_id":   {"type": "keyword"},
			"entity_type":     {"type": "keyword"},
			"label":           {"type": "text"},
			"phone_number":    {"type": "keyword"},
			"person_name":     {"type": "text"},
			"role":            {"type": "keyword"},
			"risk_level":      {"type": "keyword"},
			"risk_score":      {"type": "integer"},
			"cluster_id":      {"type": "integer"},
			"total_calls":     {"type": "integer"},
			"total_duration":  {"type": "integer"},
			"unique_contacts": {"type": "integer"},
			"first_seen":      {"type": "date"},
			"last_seen":       {"type": "date"}
		}
	}
}`

// EntityRepository keeps generated call entities searchable across a case
type EntityRepository struct {
	client *elastic.Client
	index  string
}

// NewEntityRepository creates the repository and makes sure the entity index exists
func NewEntityRepository(ctx context.Context, cfg config.ElasticsearchConfig) (*EntityRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	res.Body.Close()

	r := &EntityRepository{client: client, index: cfg.Index}
	if err := r.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *EntityRepository) ensureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check entity index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = r.client.Indices.Create(r.index,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(strings.NewReader(entityMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create entity index: %w", err)
	}
	body, err := readBody(res.Body)
	if err != nil {
		return err
	}

	// Another instance may have won the race
	if res.IsError() && gjson.GetBytes(body, "error.type").String() != "resource_already_exists_exception" {
		return fmt.Errorf("elasticsearch error: [%d] %s", res.StatusCode, body)
	}
	return nil
}

func documentID(caseID int64, phone string) string {
	return fmt.Sprintf("case-%d-%s", caseID, phone)
}

// IndexNetwork bulk-indexes the entities of a generation, then drops documents left over
// from earlier generations of the same case
func (r *EntityRepository) IndexNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) error {
	if len(network.Entities) > 0 {
		var buf bytes.Buffer
		for _, e := range network.Entities {
			e.CaseID = caseID
			e.GenerationID = network.GenerationID
			meta := map[string]any{"index": map[string]any{"_index": r.index, "_id": documentID(caseID, e.PhoneNumber)}}
			if err := json.NewEncoder(&buf).Encode(meta); err != nil {
				return fmt.Errorf("failed to encode bulk action: %w", err)
			}
			if err := json.NewEncoder(&buf).Encode(e); err != nil {
				return fmt.Errorf("failed to encode entity: %w", err)
			}
		}

		res, err := r.client.Bulk(&buf,
			r.client.Bulk.WithContext(ctx),
			r.client.Bulk.WithIndex(r.index),
			r.client.Bulk.WithRefresh("true"),
		)
		if err != nil {
			return fmt.Errorf("failed to index entities: %w", err)
		}
		body, err := readBody(res.Body)
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("elasticsearch error: [%d] %s", res.StatusCode, body)
		}
		if gjson.GetBytes(body, "errors").Bool() {
			reason := "unknown"
			if reasons := gjson.GetBytes(body, "items.#.index.error.reason").Array(); len(reasons) > 0 {
				reason = reasons[0].String()
			}
			return fmt.Errorf("elasticsearch bulk error: %s", reason)
		}
	}

	return r.deleteStale(ctx, caseID, network.GenerationID.String())
}

func (r *EntityRepository) deleteStale(ctx context.Context, caseID int64, generationID string) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter":   []any{map[string]any{"term": map[string]any{"case_id": caseID}}},
				"must_not": []any{map[string]any{"term": map[string]any{"generation_id": generationID}}},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.DeleteByQuery([]string{r.index}, &buf,
		r.client.DeleteByQuery.WithContext(ctx),
		r.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("failed to delete stale entities: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// SearchEntities matches free text against phone numbers, labels and names within one case
func (r *EntityRepository) SearchEntities(ctx context.Context, caseID int64, text string, limit int) ([]domain.CallEntity, error) {
	text = strings.TrimSpace(text)
	pattern := "*" + strings.NewReplacer("*", "", "?", "").Replace(text) + "*"

	esQuery := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{map[string]any{"term": map[string]any{"case_id": caseID}}},
				"should": []any{
					map[string]any{"wildcard": map[string]any{"phone_number": map[string]any{"value": pattern}}},
					map[string]any{"multi_match": map[string]any{
						"query":  text,
						"fields": []string{"label", "person_name"},
					}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []map[string]any{
			{"risk_score": "desc"},
			{"total_calls": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	body, err := readBody(res.Body)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: [%d] %s", res.StatusCode, body)
	}

	entities := []domain.CallEntity{}
	var decodeErr error
	gjson.GetBytes(body, "hits.hits").ForEach(func(_, hit gjson.Result) bool {
		var e domain.CallEntity
		if err := json.Unmarshal([]byte(hit.Get("_source").Raw), &e); err != nil {
			decodeErr = fmt.Errorf("failed to decode entity: %w", err)
			return false
		}
		entities = append(entities, e)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entities, nil
}

func readBody(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read elasticsearch response: %w", err)
	}
	return data, nil
}
