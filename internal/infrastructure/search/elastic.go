// Package search keeps an Elasticsearch copy of account profiles.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/oops"

	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/pkg/helpers"
)

// Mapping is the index definition created on startup.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "email":         {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "name":          {"type": "text"},
      "profile_image": {"type": "keyword", "index": false},
      "is_verified":   {"type": "boolean"}
    }
  }
}`

type AccountIndex struct {
	ES        *elasticsearch.Client
	IndexName string
	Timeout   time.Duration
}

func NewAccountIndex(es *elasticsearch.Client, index string) *AccountIndex {
	return &AccountIndex{ES: es, IndexName: index, Timeout: 3 * time.Second}
}

var _ application.AccountIndexer = (*AccountIndex)(nil)

// Ensure creates the index when missing.
func (x *AccountIndex) Ensure(ctx context.Context) error {
	return helpers.EnsureIndex(ctx, x.ES, x.IndexName, Mapping)
}

// Index upserts the profile under its account id.
func (x *AccountIndex) Index(ctx context.Context, p entity.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return oops.With("operation", "encode profile").Wrap(err)
	}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	req := esapi.IndexRequest{Index: x.IndexName, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	res, err := req.Do(c, x.ES)
	if err != nil {
		return oops.With("operation", "index profile").With("account_id", p.ID).Wrap(err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return oops.With("operation", "index profile").With("status", res.Status()).Errorf("elasticsearch rejected document")
	}
	return nil
}

// Search runs a multi_match over email and name, email weighted higher.
func (x *AccountIndex) Search(ctx context.Context, q string, size int) ([]entity.Profile, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, oops.With("operation", "encode query").Wrap(err)
	}

	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.IndexName),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, oops.With("operation", "search profiles").Wrap(err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, oops.With("operation", "search profiles").With("status", res.Status()).Errorf("elasticsearch search failed")
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Profile `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, oops.With("operation", "decode search response").Wrap(err)
	}

	out := make([]entity.Profile, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
