// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/danielhkuo/roompick/models"
)

const maxResponseBytes = 1 << 20

// Catalog supplies the candidate list for a category
type Catalog interface {
	FetchCandidates(ctx context.Context, category string) ([]models.Candidate, error)
}

type candidatesResponse struct {
	Candidates []models.Candidate `json:"candidates"`
}

// HTTPCatalog reads candidates from a remote catalog service at
// GET {baseURL}/categories/{category}/candidates. Connection errors and 5xx
// responses are retried.
type HTTPCatalog struct {
	baseURL string
	client  *retryablehttp.Client
}

type Option func(*retryablehttp.Client)

func WithRetries(max int, waitMin, waitMax time.Duration) Option {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *retryablehttp.Client) { c.HTTPClient.Timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *retryablehttp.Client) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func NewHTTPCatalog(baseURL string, opts ...Option) *HTTPCatalog {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = slog.Default()
	for _, opt := range opts {
		opt(client)
	}
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *HTTPCatalog) FetchCandidates(ctx context.Context, category string) ([]models.Candidate, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("category is required")
	}

	reqURL := c.baseURL + "/categories/" + url.PathEscape(category) + "/candidates"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// unknown category
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: unexpected status %d: %s", models.ErrCatalogUnavailable, resp.StatusCode, string(body))
	}

	var out candidatesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding candidates for %s: %w", category, err)
	}
	return normalize(out.Candidates), nil
}

// normalize drops candidates without an id and repeated ids, keeping the
// first occurrence so the catalog's order survives
func normalize(in []models.Candidate) []models.Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]models.Candidate, 0, len(in))
	for _, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// StaticCatalog serves a fixed in-process set of categories. It backs local
// runs and tests when no catalog service is configured.
type StaticCatalog struct {
	categories map[string][]models.Candidate
}

func NewStaticCatalog(categories map[string][]models.Candidate) *StaticCatalog {
	cp := make(map[string][]models.Candidate, len(categories))
	for k, v := range categories {
		cp[strings.ToLower(k)] = normalize(v)
	}
	return &StaticCatalog{categories: cp}
}

func (s *StaticCatalog) FetchCandidates(ctx context.Context, category string) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := s.categories[strings.ToLower(strings.TrimSpace(category))]
	out := make([]models.Candidate, len(list))
	copy(out, list)
	return out, nil
}

// Categories lists the category names this catalog knows
func (s *StaticCatalog) Categories() []string {
	names := make([]string, 0, len(s.categories))
	for k := range s.categories {
		names = append(names, k)
	}
	return names
}

// Default is the built-in catalog used when no CATALOG_URL is set
func Default() *StaticCatalog {
	return NewStaticCatalog(map[string][]models.Candidate{
		"movies": {
			{ID: "m-arrival", Title: "Arrival"},
			{ID: "m-heat", Title: "Heat"},
			{ID: "m-paddington2", Title: "Paddington 2"},
			{ID: "m-spirited-away", Title: "Spirited Away"},
			{ID: "m-the-thing", Title: "The Thing"},
		},
		"food": {
			{ID: "f-pizza", Title: "Pizza"},
			{ID: "f-ramen", Title: "Ramen"},
			{ID: "f-tacos", Title: "Tacos"},
			{ID: "f-thai", Title: "Thai"},
		},
		"games": {
			{ID: "g-codenames", Title: "Codenames"},
			{ID: "g-catan", Title: "Catan"},
			{ID: "g-wavelength", Title: "Wavelength"},
		},
	})
}
