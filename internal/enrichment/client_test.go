package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sales-analytics/internal/types"
)

const catalogBody = `{"products":[
	{"id":101,"title":"Laptop Pro","category":"laptops","rating":4.5,"stock":12,"brand":"Acme","price":999.99},
	{"id":5,"title":"Mouse","category":"accessories","rating":3.9,"stock":40,"brand":"Clicky","price":19.5},
	{"id":0,"title":"Ghost","category":"none","rating":0,"stock":0,"brand":"","price":0}
],"total":3,"skip":0,"limit":3}`

func newTestClient(url string, attempts int) *Client {
	return NewClient(ClientConfig{
		BaseURL:  url,
		Limit:    100,
		Timeout:  2 * time.Second,
		Attempts: attempts,
	}, zerolog.Nop())
}

func TestFetchCatalog_Success(t *testing.T) {
	var gotPath, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogBody))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL+"/", 1).FetchCatalog(context.Background())

	require.Equal(t, CatalogFetched, result.State)
	assert.Equal(t, "/products", gotPath)
	assert.Equal(t, "100", gotLimit)
	assert.Equal(t, 3, result.ProductCount)
	assert.Len(t, result.Mapping, 2, "non-positive ids are dropped")
	assert.Equal(t, "Acme", result.Mapping[101].Brand)
	assert.InDelta(t, 4.5, result.Mapping[101].Rating, 1e-9)
	assert.NoError(t, result.Reason)
	assert.Equal(t, "fetched (3 products)", result.Describe())
}

func TestFetchCatalog_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		attempts  int
		wantCalls int32
	}{
		{"server error not retried with one attempt", http.StatusInternalServerError, "", 1, 1},
		{"server error retried once", http.StatusBadGateway, "", 2, 2},
		{"client error never retried", http.StatusNotFound, "", 2, 1},
		{"undecodable body", http.StatusOK, "{not json", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result := newTestClient(srv.URL, tt.attempts).FetchCatalog(context.Background())

			assert.Equal(t, CatalogUnavailable, result.State)
			assert.Nil(t, result.Mapping)
			assert.True(t, errors.Is(result.Reason, ErrCatalogUnavailable))
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestFetchCatalog_RetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(catalogBody))
	}))
	defer srv.Close()

	result := newTestClient(srv.URL, 2).FetchCatalog(context.Background())

	assert.Equal(t, CatalogFetched, result.State)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchCatalog_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := newTestClient(url, 1).FetchCatalog(context.Background())
	assert.Equal(t, CatalogUnavailable, result.State)
	assert.Contains(t, result.Describe(), "unavailable")
}

func TestFetchCatalog_InvalidBaseURL(t *testing.T) {
	result := newTestClient("ftp://example.com", 1).FetchCatalog(context.Background())
	assert.Equal(t, CatalogUnavailable, result.State)
}

func TestBuildMapping(t *testing.T) {
	mapping := BuildMapping([]types.CatalogEntry{
		{ID: -1, Title: "neg"},
		{ID: 7, Title: "first"},
		{ID: 7, Title: "second"},
	})

	require.Len(t, mapping, 1)
	assert.Equal(t, "second", mapping[7].Title)
}

func TestUnavailable_WrapsSentinel(t *testing.T) {
	cause := errors.New("boom")
	result := Unavailable(cause)

	assert.True(t, errors.Is(result.Reason, ErrCatalogUnavailable))
	assert.True(t, errors.Is(result.Reason, cause))
	assert.True(t, errors.Is(Unavailable(nil).Reason, ErrCatalogUnavailable))
}
