// =============================================================================
// Sales Analytics - Product Catalog Client
// =============================================================================
//
// This module fetches the external product catalog used for enrichment.
//
// REQUEST:
//   GET {BaseURL}/products?limit={Limit}
//   -> {"products": [{"id": 1, "title": "...", "category": "...", ...}]}
//
// FAILURE HANDLING:
//   - Non-2xx status, transport error, or undecodable body all produce a
//     CatalogUnavailable result; the caller continues without enrichment
//   - With Attempts = 2, a transport error or 5xx status is retried once
//   - A 4xx status is never retried
//
// =============================================================================

package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/sales-analytics/internal/types"
)

// ErrCatalogUnavailable is wrapped by the reason of every unavailable
// catalog result.
var ErrCatalogUnavailable = errors.New("product catalog unavailable")

// maxBodyBytes caps the catalog response size.
const maxBodyBytes = 10 << 20

// =============================================================================
// CATALOG RESULT
// =============================================================================

// CatalogState tells whether the catalog was fetched.
type CatalogState int

const (
	// CatalogUnavailable means no catalog could be obtained.
	CatalogUnavailable CatalogState = iota

	// CatalogFetched means a catalog was decoded (possibly with zero entries).
	CatalogFetched
)

// String returns a lowercase name for the state.
func (s CatalogState) String() string {
	if s == CatalogFetched {
		return "fetched"
	}
	return "unavailable"
}

// CatalogResult is the outcome of a catalog fetch.
type CatalogResult struct {
	State CatalogState

	// Mapping is keyed by numeric catalog id. Nil when unavailable.
	Mapping map[int]types.CatalogEntry

	// ProductCount is the number of entries returned by the API.
	ProductCount int

	// Reason describes why the catalog is unavailable. It wraps
	// ErrCatalogUnavailable.
	Reason error
}

// Fetched builds a CatalogFetched result from raw entries.
func Fetched(entries []types.CatalogEntry) CatalogResult {
	return CatalogResult{
		State:        CatalogFetched,
		Mapping:      BuildMapping(entries),
		ProductCount: len(entries),
	}
}

// Unavailable builds a CatalogUnavailable result.
func Unavailable(reason error) CatalogResult {
	if reason == nil {
		reason = ErrCatalogUnavailable
	} else if !errors.Is(reason, ErrCatalogUnavailable) {
		reason = fmt.Errorf("%w: %w", ErrCatalogUnavailable, reason)
	}
	return CatalogResult{State: CatalogUnavailable, Reason: reason}
}

// Describe returns a one-line status for reports and logs.
func (r CatalogResult) Describe() string {
	if r.State == CatalogFetched {
		return fmt.Sprintf("fetched (%d products)", r.ProductCount)
	}
	if r.Reason != nil {
		return "unavailable: " + r.Reason.Error()
	}
	return "unavailable"
}

// BuildMapping indexes entries by id. Entries with a non-positive id are
// dropped; a later duplicate id replaces an earlier one.
func BuildMapping(entries []types.CatalogEntry) map[int]types.CatalogEntry {
	mapping := make(map[int]types.CatalogEntry, len(entries))
	for _, e := range entries {
		if e.ID <= 0 {
			continue
		}
		mapping[e.ID] = e
	}
	return mapping
}

// =============================================================================
// CLIENT
// =============================================================================

// Fetcher obtains a product catalog.
type Fetcher interface {
	FetchCatalog(ctx context.Context) CatalogResult
}

// ClientConfig contains the catalog client settings.
type ClientConfig struct {
	BaseURL  string
	Limit    int
	Timeout  time.Duration
	Attempts int
}

// Client fetches the catalog over HTTP.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a catalog client. Attempts is clamped to [1, 2] and a
// zero timeout means 10s.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Attempts > 2 {
		cfg.Attempts = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.With().Str("component", "catalog").Logger(),
	}
}

// catalogResponse is the envelope returned by the products endpoint.
type catalogResponse struct {
	Products []types.CatalogEntry `json:"products"`
}

// fetchError records whether a failed attempt may be retried.
type fetchError struct {
	err       error
	retryable bool
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// FetchCatalog performs the catalog request. It never returns an error;
// failures are reported through an unavailable result.
func (c *Client) FetchCatalog(ctx context.Context) CatalogResult {
	endpoint, err := c.endpoint()
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid catalog URL")
		return Unavailable(err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		entries, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			c.log.Info().
				Int("products", len(entries)).
				Int("attempt", attempt).
				Msg("catalog fetched")
			return Fetched(entries)
		}

		lastErr = err
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.Attempts).
			Msg("catalog request failed")

		var fe *fetchError
		if !errors.As(err, &fe) || !fe.retryable || ctx.Err() != nil {
			break
		}
	}

	return Unavailable(lastErr)
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/products")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if c.cfg.Limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(c.cfg.Limit))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]types.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &fetchError{err: fmt.Errorf("request catalog: %w", err), retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &fetchError{
			err:       fmt.Errorf("catalog returned status %d", resp.StatusCode),
			retryable: resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &fetchError{err: fmt.Errorf("read catalog body: %w", err), retryable: true}
	}

	var payload catalogResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	return payload.Products, nil
}
