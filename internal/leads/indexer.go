// internal/leads/indexer.go
package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/models"
)

// leadDocument is the indexed form of a lead. Transcript holds the user's
// side of the conversation so admins can search by what was said.
type leadDocument struct {
	models.LeadSummary
	Transcript string `json:"transcript"`
}

// ESIndexer keeps an Elasticsearch index of lead summaries.
type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewESIndexer(client *elasticsearch.Client, index string) *ESIndexer {
	if index == "" {
		index = "leads"
	}
	return &ESIndexer{client: client, index: index}
}

func (x *ESIndexer) Index(ctx context.Context, lead *models.Lead) error {
	var said []string
	for _, msg := range lead.ChatHistory {
		if msg.Role == models.RoleUser {
			said = append(said, msg.Content)
		}
	}

	body, err := json.Marshal(leadDocument{LeadSummary: lead.Summary(), Transcript: strings.Join(said, "\n")})
	if err != nil {
		return fmt.Errorf("encode lead document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: lead.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return apperrors.NewExternalServiceError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewExternalServiceError("elasticsearch", fmt.Errorf("index lead: %s", res.Status()))
	}
	return nil
}

func (x *ESIndexer) Search(ctx context.Context, query string, limit int) ([]models.LeadSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"email^3", "companyName^2", "relevanceTag", "transcript"},
				"type":   "best_fields",
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchFailedError(fmt.Errorf("search leads: %s", res.Status()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source leadDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}

	out := make([]models.LeadSummary, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		out = append(out, hit.Source.LeadSummary)
	}
	return out, nil
}
