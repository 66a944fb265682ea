// Package openfoodfacts looks products up in the OpenFoodFacts catalogue.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/larder/internal/category"
	"github.com/dukerupert/larder/internal/model"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	cacheTTL       = 6 * time.Hour
	pageSize       = 20
	// minQueryLen is the shortest search query sent to the catalogue.
	minQueryLen = 2
	userAgent   = "larder/1.0"
)

var (
	// ErrLookupFailed matches every *LookupError.
	ErrLookupFailed = errors.New("product lookup failed")
	ErrBlankBarcode = errors.New("barcode is blank")
)

// LookupError is a transport, status or decoding failure talking to the
// catalogue. It is distinct from "not found", which is a nil result.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("openfoodfacts %s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}

// Product is a catalogue record.
type Product struct {
	Code       string `json:"code"`
	Name       string `json:"product_name"`
	Brand      string `json:"brands"`
	Categories string `json:"categories"`
	ImageURL   string `json:"image_url"`
}

// Category classifies the free-text category tags.
func (p Product) Category() model.Category {
	return category.Classify(p.Categories)
}

type productResponse struct {
	Status  int      `json:"status"`
	Product *Product `json:"product"`
}

type searchResponse struct {
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Products []Product `json:"products"`
}

type cacheEntry struct {
	product *Product
	fetched time.Time
}

// Client talks to the OpenFoodFacts HTTP API. Barcode hits and misses are
// cached for a few hours.
type Client struct {
	client  *http.Client
	baseURL string

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Lookup fetches the product with the given barcode. It returns (nil, nil)
// when the catalogue does not know the code.
func (c *Client) Lookup(ctx context.Context, barcode string) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrBlankBarcode
	}

	c.mu.RLock()
	entry, ok := c.cache[barcode]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetched) < cacheTTL {
		return entry.product, nil
	}

	p, err := c.fetchProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[barcode] = cacheEntry{product: p, fetched: c.now()}
	c.mu.Unlock()
	return p, nil
}

func (c *Client) fetchProduct(ctx context.Context, barcode string) (*Product, error) {
	u := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))

	var resp productResponse
	status, err := c.getJSON(ctx, u, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, &LookupError{Op: "lookup", Err: err}
	}
	if resp.Status != 1 || resp.Product == nil {
		return nil, nil
	}
	if resp.Product.Code == "" {
		resp.Product.Code = barcode
	}
	return resp.Product, nil
}

// Search returns up to one page of products matching query. Queries shorter
// than two characters return nothing without a request.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLen {
		return []Product{}, nil
	}

	q := url.Values{}
	q.Set("search_terms", query)
	q.Set("page", "1")
	q.Set("page_size", fmt.Sprint(pageSize))
	q.Set("json", "1")

	var resp searchResponse
	if _, err := c.getJSON(ctx, c.baseURL+"/cgi/search.pl?"+q.Encode(), &resp); err != nil {
		return nil, &LookupError{Op: "search", Err: err}
	}
	if resp.Products == nil {
		return []Product{}, nil
	}
	return resp.Products, nil
}

// getJSON decodes a 200 response into v and returns the status code.
func (c *Client) getJSON(ctx context.Context, u string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
