// Package client talks to the rentiful HTTP API. Search results are cached by
// filter and dropped after any mutation that can change them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rentiful/server/internal/cache"
	"rentiful/server/internal/filter"
	"rentiful/server/internal/models"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rentiful api: %d %s", e.Status, e.Message)
}

// Photo is one image attached to CreateProperty
type Photo struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func(ctx context.Context) (string, error)
	cache      cache.Cache
	logger     *logrus.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource supplies the bearer token for authenticated calls
func WithTokenSource(fn func(ctx context.Context) (string, error)) Option {
	return func(c *Client) { c.token = fn }
}

func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewMemory(5*time.Minute, c.logger)
	}
	return c
}

// Search lists properties matching f. Identical filters share one cache entry.
func (c *Client) Search(ctx context.Context, f filter.Filter) ([]models.Property, error) {
	key := f.CacheKey()
	if data, ok := c.cache.Get(ctx, key); ok {
		var props []models.Property
		if err := json.Unmarshal(data, &props); err == nil {
			return props, nil
		}
	}

	target := "/properties"
	if q := f.Encode().Encode(); q != "" {
		target += "?" + q
	}
	data, err := c.do(ctx, http.MethodGet, target, nil, "", false)
	if err != nil {
		return nil, err
	}

	var props []models.Property
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	c.cache.Set(ctx, key, data)
	return props, nil
}

func (c *Client) Property(ctx context.Context, id int64) (*models.Property, error) {
	var prop models.Property
	if err := c.getJSON(ctx, "/properties/"+strconv.FormatInt(id, 10), &prop); err != nil {
		return nil, err
	}
	return &prop, nil
}

// CreateProperty posts the listing form. fields uses the form names of the
// create endpoint, e.g. "pricePerMonth" or "amenities".
func (c *Client) CreateProperty(ctx context.Context, fields url.Values, photos ...Photo) (*models.Property, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range photos {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename=%q`, p.Name))
		h.Set("Content-Type", p.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, p.Body); err != nil {
			return nil, fmt.Errorf("failed to read photo %s: %w", p.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPost, "/properties", &buf, mw.FormDataContentType(), true)
	if err != nil {
		return nil, err
	}
	var prop models.Property
	if err := json.Unmarshal(data, &prop); err != nil {
		return nil, fmt.Errorf("failed to decode property: %w", err)
	}
	c.invalidate(ctx)
	return &prop, nil
}

func (c *Client) AddFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error) {
	return c.changeFavorite(ctx, http.MethodPost, cognitoID, propertyID)
}

func (c *Client) RemoveFavorite(ctx context.Context, cognitoID string, propertyID int64) (*models.Tenant, error) {
	return c.changeFavorite(ctx, http.MethodDelete, cognitoID, propertyID)
}

func (c *Client) changeFavorite(ctx context.Context, method, cognitoID string, propertyID int64) (*models.Tenant, error) {
	target := fmt.Sprintf("/tenants/%s/favorites/%d", url.PathEscape(cognitoID), propertyID)
	data, err := c.do(ctx, method, target, nil, "", true)
	if err != nil {
		return nil, err
	}
	var tenant models.Tenant
	if err := json.Unmarshal(data, &tenant); err != nil {
		return nil, fmt.Errorf("failed to decode tenant: %w", err)
	}
	c.invalidate(ctx)
	return &tenant, nil
}

func (c *Client) invalidate(ctx context.Context) {
	if err := c.cache.InvalidateProperties(ctx); err != nil {
		c.logger.WithError(err).Warn("Failed to invalidate cached searches")
	}
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	data, err := c.do(ctx, http.MethodGet, target, nil, "", false)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		if c.token == nil {
			return nil, errors.New("no token source configured")
		}
		tok, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
		}
		return nil, apiErr
	}
	return data, nil
}
