package openfoodfacts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/larder/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL), &calls
}

func TestLookupFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/4607001771234.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"status":1,"product":{"code":"4607001771234","product_name":"Кефир 2,5%","brands":"Простоквашино","categories":"Молочные продукты, Кефиры","image_url":"https://img/x.jpg"}}`))
	})

	p, err := c.Lookup(context.Background(), "4607001771234")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Кефир 2,5%", p.Name)
	assert.Equal(t, "Простоквашино", p.Brand)
	assert.Equal(t, "https://img/x.jpg", p.ImageURL)
	assert.Equal(t, model.CategoryDairy, p.Category())
}

func TestLookupNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	})

	p, err := c.Lookup(context.Background(), "000")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestLookup404IsNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	p, err := c.Lookup(context.Background(), "000")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestLookupFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)

			p, err := c.Lookup(context.Background(), "123")
			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrLookupFailed))

			var lerr *LookupError
			require.True(t, errors.As(err, &lerr))
			assert.Equal(t, "lookup", lerr.Op)
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Lookup(context.Background(), "123")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestLookupBlankBarcode(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrBlankBarcode)
	assert.False(t, errors.Is(err, ErrLookupFailed))
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestLookupCache(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":1,"product":{"product_name":"Milk"}}`))
	})

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		p, err := c.Lookup(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "Milk", p.Name)
		assert.Equal(t, "42", p.Code)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	now = now.Add(cacheTTL + time.Minute)
	_, err := c.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "молоко", q.Get("search_terms"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "20", q.Get("page_size"))
		assert.Equal(t, "1", q.Get("json"))
		w.Write([]byte(`{"count":2,"page":1,"page_size":20,"products":[{"code":"1","product_name":"Молоко 3,2%"},{"code":"2","product_name":"Молоко 1,5%"}]}`))
	})

	products, err := c.Search(context.Background(), " молоко ")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "1", products[0].Code)
}

func TestSearchShortQuery(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, q := range []string{"", " ", "м", "a"} {
		products, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.NotNil(t, products)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestSearchFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), "milk")
	assert.ErrorIs(t, err, ErrLookupFailed)
}
