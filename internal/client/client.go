// Package client is the data-access layer for the remote POS data service.
//
// It wraps the service's REST/JSON endpoints, attaches the session's bearer
// token to every request, rate-limits outbound calls, and caches collection
// reads with an explicit per-mutation invalidation contract (see cache.go).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poskit/backoffice/internal/catalog"
	"github.com/poskit/backoffice/internal/session"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
}

// Client talks to the remote POS data service.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	limiter *rate.Limiter
	cache   *collectionCache
}

// New creates a Client. The session supplies the bearer token; it may start
// empty and be populated later.
func New(opts Options, sess *session.Session) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		session: sess,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		cache:   newCollectionCache(opts.CacheTTL),
	}
}

// APIError is an error body returned by the remote service.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote service returned status %d", e.StatusCode)
}

// do executes one request against the remote service. Body (if non-nil) is
// JSON-encoded; a non-nil out receives the decoded response. Error responses
// are surfaced as *APIError so callers can report the service's own message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.session.Token(); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("%s %s failed with status %d", method, path, resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Categories returns all categories, served from cache when fresh.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	if v, ok := c.cache.get(CollectionCategories); ok {
		return v.([]catalog.Category), nil
	}
	var out []catalog.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	c.cache.put(CollectionCategories, out)
	return out, nil
}

// Manufacturers returns all manufacturers, served from cache when fresh.
func (c *Client) Manufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	if v, ok := c.cache.get(CollectionManufacturers); ok {
		return v.([]catalog.Manufacturer), nil
	}
	var out []catalog.Manufacturer
	if err := c.do(ctx, http.MethodGet, "/manufacturers", nil, &out); err != nil {
		return nil, err
	}
	c.cache.put(CollectionManufacturers, out)
	return out, nil
}

// AdminProducts returns the full product list, including invisible products,
// served from cache when fresh.
func (c *Client) AdminProducts(ctx context.Context) ([]catalog.Product, error) {
	if v, ok := c.cache.get(CollectionProducts); ok {
		return v.([]catalog.Product), nil
	}
	var out []catalog.Product
	if err := c.do(ctx, http.MethodGet, "/products/admin", nil, &out); err != nil {
		return nil, err
	}
	c.cache.put(CollectionProducts, out)
	return out, nil
}

// Sales returns the sales history, served from cache when fresh.
func (c *Client) Sales(ctx context.Context) ([]catalog.Sale, error) {
	if v, ok := c.cache.get(CollectionSales); ok {
		return v.([]catalog.Sale), nil
	}
	var out []catalog.Sale
	if err := c.do(ctx, http.MethodGet, "/sales", nil, &out); err != nil {
		return nil, err
	}
	c.cache.put(CollectionSales, out)
	return out, nil
}

// Users returns all back-office users, served from cache when fresh.
func (c *Client) Users(ctx context.Context) ([]catalog.User, error) {
	if v, ok := c.cache.get(CollectionUsers); ok {
		return v.([]catalog.User), nil
	}
	var out []catalog.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	c.cache.put(CollectionUsers, out)
	return out, nil
}

// CreateProduct inserts a new product.
func (c *Client) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &out); err != nil {
		return catalog.Product{}, err
	}
	c.cache.invalidateFor(MutationProductWrite)
	return out, nil
}

// UpdateProduct replaces the product with p.ID.
func (c *Client) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		return catalog.Product{}, fmt.Errorf("update product: missing id")
	}
	var out catalog.Product
	if err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(p.ID), p, &out); err != nil {
		return catalog.Product{}, err
	}
	c.cache.invalidateFor(MutationProductWrite)
	return out, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.cache.invalidateFor(MutationProductDelete)
	return nil
}

// CreateCategory inserts a new category.
func (c *Client) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	var out catalog.Category
	if err := c.do(ctx, http.MethodPost, "/categories", catalog.Category{Name: name}, &out); err != nil {
		return catalog.Category{}, err
	}
	c.cache.invalidateFor(MutationCategoryWrite)
	return out, nil
}

// UpdateCategory renames a category.
func (c *Client) UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	var out catalog.Category
	if err := c.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(cat.ID), cat, &out); err != nil {
		return catalog.Category{}, err
	}
	c.cache.invalidateFor(MutationCategoryWrite)
	return out, nil
}

// DeleteCategory removes a category. Products referencing it may change on
// the remote side, so the product cache is invalidated too.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.cache.invalidateFor(MutationCategoryDelete)
	return nil
}

// CreateManufacturer inserts a new manufacturer.
func (c *Client) CreateManufacturer(ctx context.Context, name string) (catalog.Manufacturer, error) {
	var out catalog.Manufacturer
	if err := c.do(ctx, http.MethodPost, "/manufacturers", catalog.Manufacturer{Name: name}, &out); err != nil {
		return catalog.Manufacturer{}, err
	}
	c.cache.invalidateFor(MutationManufacturerWrite)
	return out, nil
}

// UpdateManufacturer renames a manufacturer.
func (c *Client) UpdateManufacturer(ctx context.Context, m catalog.Manufacturer) (catalog.Manufacturer, error) {
	var out catalog.Manufacturer
	if err := c.do(ctx, http.MethodPut, "/manufacturers/"+url.PathEscape(m.ID), m, &out); err != nil {
		return catalog.Manufacturer{}, err
	}
	c.cache.invalidateFor(MutationManufacturerWrite)
	return out, nil
}

// DeleteManufacturer removes a manufacturer; the product cache is
// invalidated for the same reason as DeleteCategory.
func (c *Client) DeleteManufacturer(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/manufacturers/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.cache.invalidateFor(MutationManufacturerDelete)
	return nil
}

// DeleteUser removes a back-office user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}
	c.cache.invalidateFor(MutationUserDelete)
	return nil
}

// InvalidateAll drops every cached collection. Used when the caller knows the
// remote state changed out of band.
func (c *Client) InvalidateAll() {
	c.cache.invalidateAll()
}
