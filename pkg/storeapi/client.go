// Package storeapi is the typed HTTP client for the commerce backend that
// owns all durable state. The composer only ever reads catalog/customer
// data, previews fees and coupons, and submits one fully formed order.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

const errorBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("storeapi base url is required")

// Client wraps the commerce backend's REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a commerce backend client.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// StatusError carries the upstream HTTP status and a trimmed body snippet
// for non-2xx backend responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) UpstreamStatus() int { return e.Status }

func (e *StatusError) UpstreamBody() string { return e.Body }

// ListCustomers fetches the full customer list. The backend exposes no
// query parameter for customers, so term filtering happens in the caller.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCustomer registers a new customer and returns the stored record.
func (c *Client) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchProducts delegates term filtering to the backend.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	query := url.Values{}
	if trimmed := strings.TrimSpace(term); trimmed != "" {
		query.Set("q", trimmed)
	}
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/catalog/products", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductOptions returns the option schema for a product.
func (c *Client) ProductOptions(ctx context.Context, productID int64) ([]ProductOption, error) {
	var out []ProductOption
	path := fmt.Sprintf("/catalog/products/%d/options", productID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OptionValues returns the choosable values for an option, dropping
// inactive entries and ordering by sortOrder.
func (c *Client) OptionValues(ctx context.Context, optionID int64) ([]OptionValue, error) {
	var out []OptionValue
	path := fmt.Sprintf("/catalog/options/%d/values", optionID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}

	values := make([]OptionValue, 0, len(out))
	for _, value := range out {
		if value.Active != nil && !*value.Active {
			continue
		}
		values = append(values, value)
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].SortOrder < values[j].SortOrder
	})
	return values, nil
}

// ListAddresses returns the customer's saved addresses.
func (c *Client) ListAddresses(ctx context.Context, customerID int64) ([]Address, error) {
	var out []Address
	path := fmt.Sprintf("/customers/%d/addresses", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAddress stores a new address for the customer.
func (c *Client) CreateAddress(ctx context.Context, customerID int64, input AddressInput) (*Address, error) {
	var out Address
	path := fmt.Sprintf("/customers/%d/addresses", customerID)
	if err := c.do(ctx, http.MethodPost, path, nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ShippingPreview computes the expected delivery fee without persisting.
func (c *Client) ShippingPreview(ctx context.Context, req ShippingPreviewRequest) (*ShippingPreviewResponse, error) {
	var out ShippingPreviewResponse
	if err := c.do(ctx, http.MethodPost, "/shipping/preview", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CouponPreview validates a coupon code and returns the would-be discount.
func (c *Client) CouponPreview(ctx context.Context, code string, req CouponPreviewRequest) (*CouponPreviewResponse, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	var out CouponPreviewResponse
	path := fmt.Sprintf("/promotions/coupons/%s/preview", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateManualOrder submits the assembled order in a single call.
func (c *Client) CreateManualOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/admin/orders/manual", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "storeapi client not configured")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+path)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request "+path)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call "+path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		statusErr := &StatusError{
			Op:     method + " " + path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, statusErr, "backend rejected "+path).
			WithDetails(map[string]any{"upstream": statusErr.Body})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response "+path)
	}
	return nil
}
