package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/authshop/internal/domain/entity"
)

type recorded struct {
	Method, Path string
	Body         map[string]any
}

func fakeES(t *testing.T, status int, reply string) (*AccountIndex, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewAccountIndex(es, "accounts"), &calls
}

func TestIndexPutsProfileUnderAccountID(t *testing.T) {
	idx, calls := fakeES(t, http.StatusCreated, `{"result":"created"}`)

	err := idx.Index(context.Background(), entity.Profile{ID: "acc-1", Name: "Alice", Email: "a@x.io"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPut, c.Method)
	assert.Equal(t, "/accounts/_doc/acc-1", c.Path)
	assert.Equal(t, "a@x.io", c.Body["email"])
	_, hasHash := c.Body["password_hash"]
	assert.False(t, hasHash)
}

func TestIndexReportsRejectedDocument(t *testing.T) {
	idx, _ := fakeES(t, http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`)

	err := idx.Index(context.Background(), entity.Profile{ID: "acc-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestSearchDecodesHits(t *testing.T) {
	reply := `{"hits":{"hits":[
		{"_id":"acc-1","_source":{"id":"acc-1","name":"Alice","email":"a@x.io","profile_image":"","is_verified":true}},
		{"_id":"acc-2","_source":{"id":"acc-2","name":"Alan","email":"al@x.io","profile_image":"uploads/x.png","is_verified":false}}
	]}}`
	idx, calls := fakeES(t, http.StatusOK, reply)

	got, err := idx.Search(context.Background(), "al", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.True(t, got[0].IsVerified)
	assert.Equal(t, "uploads/x.png", got[1].ProfileImagePath)

	require.Len(t, *calls, 1)
	assert.True(t, strings.HasSuffix((*calls)[0].Path, "/accounts/_search"))
	assert.EqualValues(t, 10, (*calls)[0].Body["size"])
}

func TestSearchError(t *testing.T) {
	idx, _ := fakeES(t, http.StatusServiceUnavailable, `{}`)

	_, err := idx.Search(context.Background(), "al", 10)
	assert.Error(t, err)
}
